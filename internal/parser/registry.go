package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/agv-mapview/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnknownFormat is returned when no decoder recognises a payload.
var ErrUnknownFormat = errors.New("unknown map payload format")

// Decoder turns a raw map payload into its flat record lists.
type Decoder interface {
	// Name returns the unique name of the decoder.
	Name() string
	// CanDecode reports whether data looks like this decoder's format.
	CanDecode(data []byte) bool
	// Decode parses the whole payload.
	Decode(data []byte) (*models.RawMap, error)
}

// Registry holds all available decoders and provides auto-detection.
type Registry struct {
	decoders []Decoder
}

var globalRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		decoders: []Decoder{
			jsonDecoder{},
			msgpackDecoder{},
		},
	}
}

// GetGlobalRegistry returns the singleton registry.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Register adds a new decoder to the registry.
func (r *Registry) Register(d Decoder) {
	r.decoders = append(r.decoders, d)
}

// FindDecoder detects the correct decoder for a payload.
func (r *Registry) FindDecoder(data []byte) (Decoder, error) {
	for _, d := range r.decoders {
		if d.CanDecode(data) {
			return d, nil
		}
	}
	return nil, ErrUnknownFormat
}

// DetectFormat names the format of a payload from its first bytes, or
// returns "" when no decoder accepts it.
func (r *Registry) DetectFormat(head []byte) string {
	d, err := r.FindDecoder(head)
	if err != nil {
		return ""
	}
	return d.Name()
}

// GetDecoderByName returns a decoder by its name.
func (r *Registry) GetDecoderByName(name string) (Decoder, error) {
	name = strings.ToLower(name)
	for _, d := range r.decoders {
		if strings.ToLower(d.Name()) == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("decoder not found: %s: %w", name, ErrUnknownFormat)
}

// Decode detects the payload format and decodes it.
func (r *Registry) Decode(data []byte) (*models.RawMap, string, error) {
	d, err := r.FindDecoder(data)
	if err != nil {
		return nil, "", err
	}
	m, err := d.Decode(data)
	if err != nil {
		return nil, d.Name(), fmt.Errorf("decode %s payload: %w", d.Name(), err)
	}
	return m, d.Name(), nil
}

type jsonDecoder struct{}

func (jsonDecoder) Name() string { return "json" }

func (jsonDecoder) CanDecode(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func (jsonDecoder) Decode(data []byte) (*models.RawMap, error) {
	var m models.RawMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

type msgpackDecoder struct{}

func (msgpackDecoder) Name() string { return "msgpack" }

// CanDecode accepts payloads whose first byte is a msgpack map header.
func (msgpackDecoder) CanDecode(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	c := data[0]
	return (c >= 0x80 && c <= 0x8f) || c == 0xde || c == 0xdf
}

func (msgpackDecoder) Decode(data []byte) (*models.RawMap, error) {
	var m models.RawMap
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
