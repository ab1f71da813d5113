package message

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Strategy selects how messages are generated.
type Strategy string

const (
	StrategyOpenAI      Strategy = "openai"
	StrategyHuggingFace Strategy = "huggingface"
	StrategyTemplate    Strategy = "template"
)

// ParseStrategy validates s.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyOpenAI, StrategyHuggingFace, StrategyTemplate:
		return st, nil
	default:
		return "", fmt.Errorf("unknown message strategy %q", s)
	}
}

// Options wires a Creator for the chosen strategy.
type Options struct {
	Strategy    Strategy
	OpenAI      Completer
	HuggingFace TextGenerator
	Logger      zerolog.Logger
}

// New returns the Creator for opts.Strategy.
func New(opts Options) (Creator, error) {
	switch opts.Strategy {
	case StrategyOpenAI:
		if opts.OpenAI == nil {
			return nil, fmt.Errorf("message strategy %s needs an OpenAI client", opts.Strategy)
		}
		return NewCompleterCreator(string(StrategyOpenAI), opts.OpenAI, opts.Logger), nil
	case StrategyHuggingFace:
		if opts.HuggingFace == nil {
			return nil, fmt.Errorf("message strategy %s needs a Hugging Face client", opts.Strategy)
		}
		return NewTextCreator(string(StrategyHuggingFace), opts.HuggingFace, opts.Logger), nil
	case StrategyTemplate, "":
		return TemplateCreator{}, nil
	default:
		return nil, fmt.Errorf("unknown message strategy %q", opts.Strategy)
	}
}
