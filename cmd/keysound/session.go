/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"keysound/internal/catalog"
	"keysound/pkg/keysound"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const sessionHelp = `Type anything; every key plays a click.
  :profiles        list switch profiles
  :profile <id>    change profile (saved for next time)
  :status          load progress per profile
  :help            this text
  :quit            exit`

// session executes the colon commands of the interactive line.
type session struct {
	sound *keysound.Sound
	out   io.Writer
}

// exec runs one submitted line and reports whether the session should end.
func (s *session) exec(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ":") {
		return false
	}
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "q", "quit", "exit":
		return true
	case "profiles":
		writeProfiles(s.out, s.sound.AvailableProfiles(), s.sound.CurrentProfile())
	case "profile":
		if len(fields) < 2 {
			fmt.Fprintf(s.out, "current profile: %s\n", s.sound.CurrentProfile())
			break
		}
		if !s.sound.ChangeProfile(fields[1]) {
			fmt.Fprintf(s.out, " [!] unknown profile %q\n", fields[1])
			break
		}
		fmt.Fprintf(s.out, "profile: %s\n", fields[1])
	case "status":
		s.status()
	case "help", "h", "?":
		fmt.Fprintln(s.out, sessionHelp)
	default:
		fmt.Fprintf(s.out, " [!] unknown command :%s (try :help)\n", fields[0])
	}
	return false
}

func (s *session) status() {
	if s.sound.IsLoading() {
		fmt.Fprintln(s.out, "samples: loading")
	} else {
		fmt.Fprintln(s.out, "samples: ready")
	}
	for _, ps := range s.sound.Status() {
		fmt.Fprintf(s.out, "  %-10s %d/%d loaded", ps.ID, ps.Loaded, ps.Total)
		if ps.Failed > 0 {
			fmt.Fprintf(s.out, ", %d failed", ps.Failed)
		}
		if ps.Pending > 0 {
			fmt.Fprintf(s.out, ", %d pending", ps.Pending)
		}
		fmt.Fprintln(s.out)
	}
}

// listener plays a click for every key the line editor sees.
func (s *session) listener() readline.Listener {
	return readline.FuncListener(func(line []rune, pos int, key rune) ([]rune, int, bool) {
		if key != 0 {
			s.sound.PlayKeySound()
		}
		return nil, 0, false
	})
}

func (s *session) completer() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(":profile", readline.PcItemDynamic(func(string) []string {
			var ids []string
			for _, p := range s.sound.AvailableProfiles() {
				ids = append(ids, p.ID)
			}
			return ids
		})),
		readline.PcItem(":profiles"),
		readline.PcItem(":status"),
		readline.PcItem(":help"),
		readline.PcItem(":quit"),
	)
}

func writeProfiles(w io.Writer, profiles []catalog.Profile, current string) {
	width := 0
	for _, p := range profiles {
		width = max(width, len(p.ID))
	}
	for _, p := range profiles {
		mark := " "
		if p.ID == current {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %-*s  %-16s %d variants\n", mark, width, p.ID, p.Name, p.Variants)
	}
}

func runSession(cmd *cobra.Command, args []string) error {
	s := &session{out: cmd.OutOrStdout()}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "keysound> ",
		InterruptPrompt: "^C",
		EOFPrompt:       ":quit",
		AutoComplete:    s.completer(),
		Listener:        s.listener(),
	})
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	defer rl.Close()
	s.out = rl.Stdout()

	sound, err := keysound.Open(cfg, log.New(rl.Stderr(), "", log.Ltime))
	if err != nil {
		return err
	}
	defer sound.Close()
	s.sound = sound

	if !sound.Start(cmd.Context()) {
		fmt.Fprintln(s.out, " [!] no audio output, running silent")
	}
	fmt.Fprintf(s.out, "profile: %s  (:help for commands)\n", sound.CurrentProfile())

	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}
		if s.exec(line) {
			return nil
		}
		if cmd.Context().Err() != nil {
			return nil
		}
	}
}
