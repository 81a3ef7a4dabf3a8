package spec

import "time"

const (
	// === IDENTITY & VERSIONING ===
	Version = "1.0.0"

	// === PROFILES & PREFERENCES ===
	DefaultProfile = "topre"
	ProfileKey     = "keyboard-sound-profile" // key di key-value store

	// === PLAYBACK ===
	BaseGain      = 2.0 // gain minimum per ketukan
	GainVariation = 0.5 // lebar interval: [BaseGain, BaseGain+GainVariation)

	// === ENGINE SPECS ===
	SampleRate      = 48000
	Channels        = 2
	SpeakerBuffer   = 30 * time.Millisecond
	FetchTimeout    = 10 * time.Second
	ResampleQuality = 4

	// === ASSET LAYOUT ===
	// {assetGroup}/press/GENERIC_R{variant}{ext}
	PressDir      = "press"
	VariantPrefix = "GENERIC_R"
	DefaultExt    = ".mp3"
	ManifestFile  = "manifest.json"

	// === FRAMED OPUS CONTAINER ===
	OpusMagic     = "KSOPX001"
	OpusExt       = ".opx"
	OpusRate      = 48000
	OpusFrameSize = 960 // 20ms @ 48kHz
	OpusMaxFrame  = 5760

	// === SOUND BANK ===
	BankMagic = "KSBANK01"
	BankExt   = ".ksb"
	TagName   = "NAME"
	TagSalt   = "SALT"
	TagBlob   = "BLOB"
	TagIndex  = "TTOC" // daftar isi, selalu ditulis terakhir
)
