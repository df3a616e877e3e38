package source

import (
	"image"
	"math"

	"github.com/gen2brain/go-fitz"

	"github.com/ivlev/melody2video/internal/errs"
)

// FitzPDFSource rasterizes PDF pages with MuPDF
type FitzPDFSource struct {
	doc  *fitz.Document
	path string
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, errs.Decode(stage, "open pdf", err).With("path", path)
	}
	return &FitzPDFSource{doc: doc, path: path}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

// Dimensions converts the page size in points to pixels at dpi
func (f *FitzPDFSource) Dimensions(index int, dpi int) (int, int, error) {
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, errs.Decode(stage, "read pdf page bounds", err).With("page", index)
	}
	scale := float64(dpi) / 72
	return int(math.Round(float64(rect.Dx()) * scale)), int(math.Round(float64(rect.Dy()) * scale)), nil
}

func (f *FitzPDFSource) Render(index int, dpi int) (image.Image, error) {
	img, err := f.doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, errs.Decode(stage, "render pdf page", err).With("page", index).With("path", f.path)
	}
	return img, nil
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}
