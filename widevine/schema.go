package widevine

import (
	_ "embed"
	"fmt"
	"sync"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

const headerMessage = "WidevineCencHeader"

//go:embed widevine_cenc_header.textproto
var schemaSource []byte

// Schema is the loaded WidevineCencHeader message definition. It is
// read-only once loaded and may be shared between goroutines.
type Schema struct {
	desc protoreflect.MessageDescriptor

	algorithm        protoreflect.FieldDescriptor
	keyID            protoreflect.FieldDescriptor
	provider         protoreflect.FieldDescriptor
	contentID        protoreflect.FieldDescriptor
	trackType        protoreflect.FieldDescriptor
	protectionScheme protoreflect.FieldDescriptor
}

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
	defaultErr    error
)

// DefaultSchema loads the embedded schema on first use. The outcome,
// including a failure, is kept for the life of the process.
func DefaultSchema() (*Schema, error) {
	defaultOnce.Do(func() {
		defaultSchema, defaultErr = LoadSchema(schemaSource)
	})
	return defaultSchema, defaultErr
}

// LoadSchema builds a Schema from a FileDescriptorProto in text format.
func LoadSchema(src []byte) (*Schema, error) {
	var fdp descriptorpb.FileDescriptorProto
	if err := prototext.Unmarshal(src, &fdp); err != nil {
		return nil, fmt.Errorf("widevine: parse schema: %w", err)
	}
	fd, err := protodesc.NewFile(&fdp, nil)
	if err != nil {
		return nil, fmt.Errorf("widevine: build schema: %w", err)
	}
	md := fd.Messages().ByName(headerMessage)
	if md == nil {
		return nil, fmt.Errorf("widevine: schema has no %s message", headerMessage)
	}

	s := &Schema{desc: md}
	fields := []struct {
		name string
		dst  *protoreflect.FieldDescriptor
	}{
		{"algorithm", &s.algorithm},
		{"key_id", &s.keyID},
		{"provider", &s.provider},
		{"content_id", &s.contentID},
		{"track_type", &s.trackType},
		{"protection_scheme", &s.protectionScheme},
	}
	for _, f := range fields {
		field := md.Fields().ByName(protoreflect.Name(f.name))
		if field == nil {
			return nil, fmt.Errorf("widevine: schema field %s.%s missing", headerMessage, f.name)
		}
		*f.dst = field
	}
	if s.algorithm.Enum() == nil {
		return nil, fmt.Errorf("widevine: schema field %s.algorithm is not an enum", headerMessage)
	}
	return s, nil
}

// FullName is the protobuf name of the header message.
func (s *Schema) FullName() string {
	return string(s.desc.FullName())
}

// validate checks a populated message against the schema: enum numbers must
// be declared, strings must be UTF-8 and required fields must be set.
func (s *Schema) validate(m protoreflect.Message) error {
	var err error
	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		if fd.IsList() {
			return true
		}
		switch fd.Kind() {
		case protoreflect.EnumKind:
			if fd.Enum().Values().ByNumber(v.Enum()) == nil {
				err = &SchemaValidationError{Field: fd.JSONName(), Msg: "enum value expected"}
			}
		case protoreflect.StringKind:
			if !utf8.ValidString(v.String()) {
				err = &SchemaValidationError{Field: fd.JSONName(), Msg: "string expected"}
			}
		}
		return err == nil
	})
	if err != nil {
		return err
	}
	if err := proto.CheckInitialized(m.Interface()); err != nil {
		return &SchemaValidationError{Msg: err.Error()}
	}
	return nil
}
