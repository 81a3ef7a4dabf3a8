/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// progress draws a single-line bar; Add is safe for concurrent workers.
type progress struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	total   int
	current int
}

func newProgress(w io.Writer, label string, total int) *progress {
	return &progress{w: w, label: label, total: total}
}

func (p *progress) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += n
	p.draw()
}

func (p *progress) draw() {
	if p.total == 0 {
		return
	}
	const width = 30
	percent := float64(p.current) / float64(p.total)
	filled := int(width * percent)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	// \r kembali ke awal baris
	fmt.Fprintf(p.w, "\r [%s] [%s] %3d%% (%d/%d)", p.label, bar, int(percent*100), p.current, p.total)
	if p.current == p.total {
		fmt.Fprintln(p.w)
	}
}
