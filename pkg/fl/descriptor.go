package fl

// ModelDescriptor is an immutable, version-tagged snapshot of a model as
// serialized by the training engine. The payload is opaque to this package.
type ModelDescriptor struct {
	binary  []byte
	version int64
}

func NewModelDescriptor(binary []byte, version int64) ModelDescriptor {
	return ModelDescriptor{
		binary:  append([]byte(nil), binary...),
		version: version,
	}
}

func (d ModelDescriptor) Version() int64 {
	return d.version
}

// Binary returns a copy of the serialized model.
func (d ModelDescriptor) Binary() []byte {
	return append([]byte(nil), d.binary...)
}

// Size returns the payload length in bytes.
func (d ModelDescriptor) Size() int {
	return len(d.binary)
}

// IsZero reports whether d carries no payload.
func (d ModelDescriptor) IsZero() bool {
	return len(d.binary) == 0
}
