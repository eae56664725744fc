package domain

import "image"

// RawImage is a decoded capture or upload. It is replaced wholesale and never
// mutated after creation.
type RawImage struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
	Image  image.Image
}

// Media is an opaque generated asset returned by the gateway.
type Media struct {
	Data []byte
	MIME string
}

func (m *Media) Empty() bool {
	return m == nil || len(m.Data) == 0
}
