package param

import (
	"fmt"
	"strings"
)

// Builder provides a fluent API for creating parameters
type Builder struct {
	param *Parameter
}

// New creates a new parameter builder
func New(id uint32, name string) *Builder {
	return &Builder{
		param: &Parameter{
			ID:        id,
			Name:      name,
			ShortName: name,
			Min:       0,
			Max:       1,
			Flags:     CanAutomate,
		},
	}
}

// Key sets the stable persistence identifier.
func (b *Builder) Key(key string) *Builder {
	b.param.Key = key
	return b
}

// Range sets the min and max values
func (b *Builder) Range(min, max float64) *Builder {
	b.param.Min = min
	b.param.Max = max
	return b
}

// Default sets the default value (in plain range, not normalized)
func (b *Builder) Default(value float64) *Builder {
	if b.param.Max > b.param.Min {
		b.param.DefaultValue = (value - b.param.Min) / (b.param.Max - b.param.Min)
	}
	return b
}

// Unit sets the unit string
func (b *Builder) Unit(unit string) *Builder {
	b.param.Unit = unit
	return b
}

// Steps sets the number of discrete steps
func (b *Builder) Steps(count int32) *Builder {
	b.param.StepCount = count
	return b
}

// Toggle creates a boolean parameter
func (b *Builder) Toggle() *Builder {
	b.param.Min = 0
	b.param.Max = 1
	b.param.StepCount = 1
	return b
}

// Bypass marks this as the bypass parameter
func (b *Builder) Bypass() *Builder {
	b.param.Flags |= IsBypass
	return b
}

// Formatter sets custom value formatting and parsing
func (b *Builder) Formatter(format func(float64) string, parse func(string) (float64, error)) *Builder {
	b.param.formatFunc = format
	b.param.parseFunc = parse
	return b
}

// Build returns the configured parameter, initialized to its default.
func (b *Builder) Build() *Parameter {
	if b.param.Key == "" {
		b.param.Key = b.param.Name
	}
	b.param.SetValue(b.param.DefaultValue)
	return b.param
}

// ChoiceOption represents a single choice in a list parameter
type ChoiceOption struct {
	Value float64
	Name  string
}

// Choice creates a builder for a multiple choice parameter
func Choice(id uint32, name string, options []ChoiceOption) *Builder {
	formatter := func(value float64) string {
		for _, opt := range options {
			if opt.Value == value {
				return opt.Name
			}
		}
		index := int(value)
		if index >= 0 && index < len(options) {
			return options[index].Name
		}
		return "Unknown"
	}

	parser := func(str string) (float64, error) {
		for _, opt := range options {
			if strings.EqualFold(strings.TrimSpace(str), opt.Name) {
				return opt.Value, nil
			}
		}
		return 0, fmt.Errorf("unknown option: %s", str)
	}

	minVal, maxVal := 0.0, float64(len(options)-1)
	if len(options) > 0 {
		minVal = options[0].Value
		maxVal = options[len(options)-1].Value
	}

	b := New(id, name).
		Range(minVal, maxVal).
		Steps(int32(len(options))).
		Formatter(formatter, parser)
	if len(options) > 0 {
		b.Default(options[0].Value)
	}
	b.param.Flags |= IsList
	return b
}

// GainParameter creates a dB gain parameter.
func GainParameter(id uint32, name string, minDb, maxDb, defaultDb float64) *Builder {
	return New(id, name).
		Range(minDb, maxDb).
		Default(defaultDb).
		Unit("dB").
		Formatter(DecibelFormatter, DecibelParser)
}

// PercentParameter creates a 0-100 percent parameter.
func PercentParameter(id uint32, name string, defaultValue float64) *Builder {
	return New(id, name).
		Range(0, 100).
		Default(defaultValue).
		Unit("%").
		Formatter(PercentFormatter, PercentParser)
}
