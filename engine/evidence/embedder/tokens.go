package embedder

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/sync/singleflight"
)

const defaultEncoding = "cl100k_base"

var (
	tokenizers      sync.Map
	tokenizerBuilds singleflight.Group
)

// CountTokens counts provider tokens for text using a cached tokenizer per
// model. Unknown models fall back to the cl100k_base encoding.
func CountTokens(model string, text string) (int, error) {
	encoder, err := encoderForModel(model)
	if err != nil {
		return 0, err
	}
	return len(encoder.Encode(text, nil, nil)), nil
}

func encoderForModel(model string) (*tiktoken.Tiktoken, error) {
	key := strings.TrimSpace(model)
	if cached, ok := tokenizers.Load(key); ok {
		if encoder, valid := cached.(*tiktoken.Tiktoken); valid {
			return encoder, nil
		}
	}
	v, err, _ := tokenizerBuilds.Do(key, func() (any, error) {
		return resolveEncoder(key)
	})
	if err != nil {
		return nil, fmt.Errorf("create tokenizer for model %q: %w", model, err)
	}
	encoder, ok := v.(*tiktoken.Tiktoken)
	if !ok {
		return nil, fmt.Errorf("unexpected tokenizer type %T", v)
	}
	tokenizers.Store(key, encoder)
	return encoder, nil
}

func resolveEncoder(model string) (*tiktoken.Tiktoken, error) {
	if model != "" {
		if enc, err := tiktoken.EncodingForModel(model); err == nil {
			return enc, nil
		}
	}
	enc, err := tiktoken.GetEncoding(defaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("get default encoding: %w", err)
	}
	return enc, nil
}
