// Package operand parses dd-style key=value operands into an engine
// configuration.
package operand

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bamsammich/ddx/internal/conv"
	"github.com/bamsammich/ddx/internal/engine"
)

var (
	// ErrUnknownOperand is returned for an operand name ddx does not accept.
	ErrUnknownOperand = errors.New("unrecognized operand")
	// ErrInvalidValue is returned for an operand value outside its domain.
	ErrInvalidValue = errors.New("invalid argument")
	// ErrConflict is returned for mutually exclusive settings.
	ErrConflict = errors.New("conflicting settings")
)

// InputFlags are the iflag= symbols.
type InputFlags struct {
	FullBlock  bool
	CountBytes bool
	SkipBytes  bool
	NoCache    bool
}

// OutputFlags are the oflag= symbols.
type OutputFlags struct {
	Append    bool
	SeekBytes bool
	Sync      bool
	DSync     bool
	NoCache   bool
}

// Operands is the parsed, validated form of a dd command line.
type Operands struct {
	Input  string
	Output string

	IBS int `validate:"gt=0,lt=2147483647"`
	OBS int `validate:"gt=0,lt=2147483647"`
	CBS int `validate:"gte=0,lt=2147483647"`

	// Count is -1 when count= was not given.
	Count int64 `validate:"gte=-1"`
	Skip  int64 `validate:"gte=0"`
	Seek  int64 `validate:"gte=0"`

	Conv   conv.Flags
	IFlags InputFlags
	OFlags OutputFlags
	Status engine.StatusLevel

	set map[string]bool
}

var validate = validator.New()

type setter func(o *Operands, value string) error

var setters = map[string]setter{
	"if":     func(o *Operands, v string) error { o.Input = v; return nil },
	"of":     func(o *Operands, v string) error { o.Output = v; return nil },
	"bs":     sizeSetter(func(o *Operands, n int64) { o.IBS, o.OBS = clampInt(n), clampInt(n) }),
	"ibs":    sizeSetter(func(o *Operands, n int64) { o.IBS = clampInt(n) }),
	"obs":    sizeSetter(func(o *Operands, n int64) { o.OBS = clampInt(n) }),
	"cbs":    sizeSetter(func(o *Operands, n int64) { o.CBS = clampInt(n) }),
	"count":  sizeSetter(func(o *Operands, n int64) { o.Count = n }),
	"skip":   sizeSetter(func(o *Operands, n int64) { o.Skip = n }),
	"iseek":  sizeSetter(func(o *Operands, n int64) { o.Skip = n }),
	"seek":   sizeSetter(func(o *Operands, n int64) { o.Seek = n }),
	"oseek":  sizeSetter(func(o *Operands, n int64) { o.Seek = n }),
	"conv":   parseConv,
	"iflag":  parseIFlags,
	"oflag":  parseOFlags,
	"status": parseStatus,
}

// canonical maps operand aliases to the name recorded by IsSet.
var canonical = map[string]string{"iseek": "skip", "oseek": "seek"}

// Parse parses operands of the form name=value. Later operands override
// earlier ones, except that bs= always takes precedence over ibs= and obs=.
func Parse(args []string) (*Operands, error) {
	o := &Operands{
		IBS:   engine.DefaultBlockSize,
		OBS:   engine.DefaultBlockSize,
		Count: -1,
		set:   make(map[string]bool),
	}

	var bs string
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownOperand, arg)
		}
		set, known := setters[name]
		if !known {
			return nil, fmt.Errorf("%w %q", ErrUnknownOperand, arg)
		}
		if name == "bs" {
			bs = value
			o.set["bs"] = true
			continue
		}
		if err := set(o, value); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if c, ok := canonical[name]; ok {
			name = c
		}
		o.set[name] = true
	}
	if o.set["bs"] {
		if err := setters["bs"](o, bs); err != nil {
			return nil, fmt.Errorf("bs: %w", err)
		}
	}

	o.applyImplications()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// IsSet reports whether any of the named operands appeared on the command
// line. Aliases are recorded under skip and seek.
func (o *Operands) IsSet(names ...string) bool {
	for _, n := range names {
		if o.set[n] {
			return true
		}
	}
	return false
}

// SetBlockSize applies bs= unless a block size operand was given.
func (o *Operands) SetBlockSize(n int) {
	if o.IsSet("bs", "ibs", "obs") || n <= 0 {
		return
	}
	o.IBS, o.OBS = n, n
}

// applyImplications expands the conversions that imply others: ascii
// implies unblock and ebcdic or ibm imply block when cbs is given.
func (o *Operands) applyImplications() {
	if o.CBS == 0 {
		return
	}
	switch {
	case o.Conv.Has(conv.ASCII) && !o.Conv.Has(conv.Block):
		o.Conv |= conv.Unblock
	case o.Conv.Any(conv.EBCDIC|conv.IBM) && !o.Conv.Has(conv.Unblock):
		o.Conv |= conv.Block
	}
}

var exclusive = []struct {
	mask conv.Flags
	desc string
}{
	{conv.Block | conv.Unblock, "block and unblock"},
	{conv.LCase | conv.UCase, "lcase and ucase"},
	{conv.ASCII | conv.EBCDIC, "ascii and ebcdic"},
	{conv.ASCII | conv.IBM, "ascii and ibm"},
	{conv.EBCDIC | conv.IBM, "ebcdic and ibm"},
	{conv.Excl | conv.NoCreat, "excl and nocreat"},
}

// Validate checks field ranges with struct tags and the cross-operand
// rules tags cannot express.
func (o *Operands) Validate() error {
	if err := validate.Struct(o); err != nil {
		return formatValidationError(err)
	}
	for _, rule := range exclusive {
		if o.Conv.Has(rule.mask) {
			return fmt.Errorf("%w: cannot combine %s", ErrConflict, rule.desc)
		}
	}
	if o.Conv.Any(conv.Block|conv.Unblock) && o.CBS == 0 {
		return fmt.Errorf("%w: block and unblock require cbs", ErrConflict)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return fmt.Errorf("%w: %s=%v fails %q", ErrInvalidValue, strings.ToLower(e.Field()), e.Value(), e.Tag())
	}
	return err
}

// Config builds the engine configuration for these operands.
func (o *Operands) Config() engine.Config {
	cfg := engine.Config{
		Input:      o.Input,
		Output:     o.Output,
		IBS:        o.IBS,
		OBS:        o.OBS,
		CBS:        o.CBS,
		Count:      o.Count,
		CountBytes: o.IFlags.CountBytes && o.Count >= 0,
		Conv:       o.Conv,
		FullBlock:  o.IFlags.FullBlock,
		InNoCache:  o.IFlags.NoCache,
		Append:     o.OFlags.Append,
		SyncWrites: o.OFlags.Sync,
		DSync:      o.OFlags.DSync,
		OutNoCache: o.OFlags.NoCache,
		Status:     o.Status,
	}
	if o.IFlags.SkipBytes {
		cfg.Skip.Bytes = o.Skip
	} else {
		cfg.Skip.Records = o.Skip
	}
	if o.OFlags.SeekBytes {
		cfg.Seek.Bytes = o.Seek
	} else {
		cfg.Seek.Records = o.Seek
	}
	return cfg
}

func sizeSetter(apply func(o *Operands, n int64)) setter {
	return func(o *Operands, v string) error {
		n, err := ParseSize(v)
		if err != nil {
			return err
		}
		apply(o, n)
		return nil
	}
}

// clampInt keeps oversized values out of range so validation rejects them
// instead of wrapping.
func clampInt(n int64) int {
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

func parseConv(o *Operands, v string) error {
	for _, sym := range strings.Split(v, ",") {
		f, ok := conv.Lookup(sym)
		if !ok {
			return fmt.Errorf("%w: conversion %q", ErrInvalidValue, sym)
		}
		o.Conv |= f
	}
	return nil
}

var inputFlags = map[string]func(f *InputFlags){
	"fullblock":   func(f *InputFlags) { f.FullBlock = true },
	"count_bytes": func(f *InputFlags) { f.CountBytes = true },
	"skip_bytes":  func(f *InputFlags) { f.SkipBytes = true },
	"nocache":     func(f *InputFlags) { f.NoCache = true },
}

var outputFlags = map[string]func(f *OutputFlags){
	"append":     func(f *OutputFlags) { f.Append = true },
	"seek_bytes": func(f *OutputFlags) { f.SeekBytes = true },
	"sync":       func(f *OutputFlags) { f.Sync = true },
	"dsync":      func(f *OutputFlags) { f.DSync = true },
	"nocache":    func(f *OutputFlags) { f.NoCache = true },
}

var statusLevels = map[string]engine.StatusLevel{
	"none":     engine.StatusNone,
	"noxfer":   engine.StatusNoXfer,
	"progress": engine.StatusProgress,
	"default":  engine.StatusDefault,
	"full":     engine.StatusDefault,
}

func parseIFlags(o *Operands, v string) error {
	for _, sym := range strings.Split(v, ",") {
		set, ok := inputFlags[sym]
		if !ok {
			return fmt.Errorf("%w: input flag %q", ErrInvalidValue, sym)
		}
		set(&o.IFlags)
	}
	return nil
}

func parseOFlags(o *Operands, v string) error {
	for _, sym := range strings.Split(v, ",") {
		set, ok := outputFlags[sym]
		if !ok {
			return fmt.Errorf("%w: output flag %q", ErrInvalidValue, sym)
		}
		set(&o.OFlags)
	}
	return nil
}

func parseStatus(o *Operands, v string) error {
	level, err := ParseStatus(v)
	if err != nil {
		return err
	}
	o.Status = level
	return nil
}

// ParseStatus parses a status= level name.
func ParseStatus(v string) (engine.StatusLevel, error) {
	level, ok := statusLevels[v]
	if !ok {
		return engine.StatusDefault, fmt.Errorf("%w: status %q", ErrInvalidValue, v)
	}
	return level, nil
}

// Symbols lists, sorted, the names accepted by operand: the operands
// themselves for "", or the symbols of conv, iflag, oflag and status. It
// returns nil for any other operand.
func Symbols(operand string) []string {
	switch operand {
	case "":
		return slices.Sorted(maps.Keys(setters))
	case "conv":
		return conv.Names()
	case "iflag":
		return slices.Sorted(maps.Keys(inputFlags))
	case "oflag":
		return slices.Sorted(maps.Keys(outputFlags))
	case "status":
		return slices.Sorted(maps.Keys(statusLevels))
	default:
		return nil
	}
}
