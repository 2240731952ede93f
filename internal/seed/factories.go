// Package seed provides helpers to create demo data through the application
// services. These helpers are intended for development and testing only.
package seed

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"socialhub/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

const (
	avatarSize    = 32
	postMediaSize = 96
)

// Factory builds fake but valid service inputs.
type Factory struct {
	faker *gofakeit.Faker
}

// NewFactory creates a Factory. The same seed yields the same sequence.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

// Registration returns a complete registration without a photo. n keeps
// emails unique across one run.
func (f *Factory) Registration(n int, password string) service.RegisterInput {
	first := f.faker.FirstName()
	last := f.faker.LastName()
	return service.RegisterInput{
		Email:     fmt.Sprintf("%s.%s.%d@example.com", emailPart(first), emailPart(last), n),
		Password:  password,
		Name:      first + " " + last,
		BirthDate: f.faker.DateRange(mustDate("1960-01-01"), mustDate("2006-12-31")).Format("2006-01-02"),
		Gender:    f.faker.RandomString([]string{"male", "female"}),
	}
}

// emailPart lowercases s and drops anything but ASCII letters and digits, so
// names like "O'Neil" still make a valid address.
func emailPart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, s)
}

// Avatar returns a small solid-colour PNG profile photo.
func (f *Factory) Avatar() service.UploadInput {
	return service.UploadInput{
		Filename:    "avatar.png",
		ContentType: "image/png",
		Content:     f.png(avatarSize),
	}
}

// PostMedia returns a PNG for a post.
func (f *Factory) PostMedia() service.UploadInput {
	return service.UploadInput{
		Filename:    f.faker.Word() + ".png",
		ContentType: "image/png",
		Content:     f.png(postMediaSize),
	}
}

// Description returns a post caption.
func (f *Factory) Description() string {
	if f.faker.Bool() {
		return f.faker.Sentence(f.faker.Number(4, 12))
	}
	return f.faker.Paragraph(1, f.faker.Number(2, 4), 10, " ")
}

// CommentText returns a short reply.
func (f *Factory) CommentText() string {
	switch f.faker.Number(0, 2) {
	case 0:
		return f.faker.Emoji() + " " + f.faker.Sentence(4)
	case 1:
		return f.faker.Phrase()
	default:
		return f.faker.Sentence(f.faker.Number(3, 10))
	}
}

// png renders a size x size image filled with a random colour.
func (f *Factory) png(size int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	fill := color.RGBA{
		R: uint8(f.faker.Number(0, 255)),
		G: uint8(f.faker.Number(0, 255)),
		B: uint8(f.faker.Number(0, 255)),
		A: 255,
	}
	for y := range size {
		for x := range size {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	// Encoding an in-memory RGBA image cannot fail.
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
