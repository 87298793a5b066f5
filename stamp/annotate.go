// seehuhn.de/go/pdfstamp - stamp form fields and a signature onto PDF pages
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package stamp

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"golang.org/x/text/unicode/norm"

	"seehuhn.de/go/geom/matrix"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/font"
	"seehuhn.de/go/pdf/graphics/color"
	"seehuhn.de/go/pdf/graphics/content"
	"seehuhn.de/go/pdf/graphics/content/builder"
	"seehuhn.de/go/pdf/graphics/form"
	pdfimage "seehuhn.de/go/pdf/graphics/image"
	"seehuhn.de/go/pdf/pagetree"
)

// Producer is recorded in the Info dictionary of every output file.
const Producer = "seehuhn.de/go/pdfstamp"

// Annotator stamps the fields of a template onto a page of a PDF file.
//
// An Annotator holds no per-document state and can be used concurrently.
type Annotator struct {
	Template *Template

	// Signature is the image drawn onto the page.  If the template has
	// no signature section, the image is placed as in [DefaultTemplate].
	// If Signature is nil, no image is drawn.
	Signature *Signature

	// Now returns the current time.  If Now is nil, time.Now is used.
	Now func() time.Time

	// Password is used to open encrypted input files.
	Password string
}

// Result is the outcome of a successful call to [Annotator.Annotate].
type Result struct {
	// PDF is the single-page output document.
	PDF []byte

	// DataURI contains PDF as a data URI.
	DataURI string

	// PageIndex is the 0-based index of the stamped page in the input.
	PageIndex int

	// PageCount is the number of pages of the input document.
	PageCount int

	// Width and Height give the size of the stamped page in PDF points.
	Width, Height float64
}

// NewAnnotator returns an annotator for the given template.
// The signature image is taken from the template, or the bundled image
// is used if the template does not name a file.
func NewAnnotator(t *Template) (*Annotator, error) {
	if t == nil {
		t = DefaultTemplate()
	}

	_, err := t.loadFont()
	if err != nil {
		return nil, &AssetLoadError{Asset: t.fontName(), Err: err}
	}

	var sig *Signature
	if t.Signature != nil {
		if t.Signature.File != "" {
			sig, err = LoadSignature(t.Signature.File)
		} else {
			sig, err = BundledSignature()
		}
		if err != nil {
			return nil, err
		}
	}

	a := &Annotator{
		Template:  t,
		Signature: sig,
	}
	return a, nil
}

func (t *Template) fontName() string {
	if t.FontFile != "" {
		return t.FontFile
	}
	return t.Font
}

func (a *Annotator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Annotate stamps the template onto the selected page of the PDF file
// given by data.  The result is a new PDF file which contains only the
// stamped page.
//
// The file ID and the dates in the output depend only on the input and
// the current day.  The numbering of the PDF objects in the output may
// differ between calls, so the output is not guaranteed to be
// byte-for-byte identical for identical inputs.
func (a *Annotator) Annotate(ctx context.Context, data []byte) (*Result, error) {
	opt := &pdf.ReaderOptions{}
	if a.Password != "" {
		opt.ReadPassword = func(_ []byte, try int) string {
			if try > 0 {
				return ""
			}
			return a.Password
		}
	}
	r, err := pdf.NewReader(bytes.NewReader(data), opt)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	defer r.Close()

	now := a.now()

	numPages, err := pagetree.NumPages(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if numPages == 0 {
		return nil, &EmptyDocumentError{}
	}
	pageIdx, err := pageIndex(a.Template.Page, numPages)
	if err != nil {
		return nil, err
	}

	refIn, pageIn, err := pagetree.GetPage(r, pageIdx)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	mediaBox, err := pdf.GetRectangle(r, pageIn["MediaBox"])
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if mediaBox == nil || mediaBox.IsZero() {
		return nil, &DecodeError{Err: errNoPageSize}
	}
	width := mediaBox.Dx()
	height := mediaBox.Dy()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	F, err := a.Template.loadFont()
	if err != nil {
		return nil, &AssetLoadError{Asset: a.Template.fontName(), Err: err}
	}

	v := pdf.GetVersion(r)
	if v < pdf.V1_4 {
		// soft masks and XMP metadata
		v = pdf.V1_4
	}
	sum := sha256.New()
	sum.Write(data)
	sum.Write([]byte(now.Format(time.DateOnly)))
	id := sum.Sum(nil)[:16]

	buf := &bytes.Buffer{}
	wOpt := &pdf.WriterOptions{
		ID: [][]byte{id, id},
	}
	w, err := pdf.NewWriter(buf, v, wOpt)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	rm := pdf.NewResourceManager(w)

	overlay, err := a.overlay(F, width, height, now)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	overlay.Matrix = matrix.Translate(mediaBox.LLx, mediaBox.LLy)
	overlayRef, err := rm.Embed(overlay)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}

	s := &pageStamper{r: r, w: w}
	pageOut, refOut, err := s.copyPage(refIn, pageIn, overlayRef)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree := pagetree.NewWriter(w, rm)
	err = tree.AppendPageDict(refOut, pageOut)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	treeRef, err := tree.Close()
	if err != nil {
		return nil, &SerializationError{Err: err}
	}

	meta := w.GetMeta()
	meta.Catalog.Pages = treeRef
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	meta.Info = &pdf.Info{
		Producer:     Producer,
		CreationDate: pdf.Date(today),
	}
	xmpStream, err := xmpMetadata(today)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	metaRef, err := rm.Embed(xmpStream)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	meta.Catalog.Metadata = metaRef.(pdf.Reference)

	err = rm.Close()
	if err != nil {
		return nil, &SerializationError{Err: err}
	}
	err = w.Close()
	if err != nil {
		return nil, &SerializationError{Err: err}
	}

	res := &Result{
		PDF:       buf.Bytes(),
		DataURI:   EncodeDataURI(buf.Bytes()),
		PageIndex: pageIdx,
		PageCount: numPages,
		Width:     width,
		Height:    height,
	}
	return res, nil
}

// pageIndex converts a possibly negative page index into a 0-based page
// number.
func pageIndex(page, numPages int) (int, error) {
	idx := page
	if idx < 0 {
		idx += numPages
	}
	if idx < 0 || idx >= numPages {
		return 0, &PageRangeError{Page: page, NumPages: numPages}
	}
	return idx, nil
}

// overlay draws all text fields and the signature image into a form
// XObject covering a page of the given size.
func (a *Annotator) overlay(F font.Layouter, width, height float64, now time.Time) (*form.Form, error) {
	t := a.Template

	b := builder.New(content.Form, &content.Resources{})
	fill := color.DeviceRGB{t.Color[0], t.Color[1], t.Color[2]}
	for _, p := range t.Resolve(width, height, now) {
		b.TextBegin()
		b.TextSetFont(F, p.Size)
		b.SetFillColor(fill)
		b.TextFirstLine(p.X, p.Y)
		b.TextShow(norm.NFC.String(p.Text))
		b.TextEnd()
	}

	if a.Signature != nil {
		img, err := pdfimage.PNG(a.Signature.Img, nil)
		if err != nil {
			return nil, err
		}
		place := t.Signature
		if place == nil {
			place = DefaultTemplate().Signature
		}
		dx, dy := a.Signature.Size()
		box := place.Resolve(width, height, dx, dy)

		b.PushGraphicsState()
		b.Transform(matrix.Matrix{box.Width, 0, 0, box.Height, box.X, box.Y})
		b.DrawXObject(img)
		b.PopGraphicsState()
	}

	err := b.Close()
	if err != nil {
		return nil, err
	}
	stream, err := b.Harvest()
	if err != nil {
		return nil, err
	}

	f := &form.Form{
		Content: stream,
		Res:     b.Resources,
		BBox:    pdf.Rectangle{URx: width, URy: height},
	}
	return f, nil
}

// pageStamper copies a page from r to w and paints an overlay on top of
// the existing page content.
type pageStamper struct {
	r *pdf.Reader
	w *pdf.Writer
}

func (s *pageStamper) copyPage(refIn pdf.Reference, pageIn pdf.Dict, overlay pdf.Native) (pdf.Dict, pdf.Reference, error) {
	// Annotations and article beads may reference other pages, which would
	// then be copied into the output file as well.
	delete(pageIn, "Annots")
	delete(pageIn, "B")

	// Resources and Contents are made direct, so that they can be
	// extended after copying.
	resIn, err := pdf.GetDict(s.r, pageIn["Resources"])
	if err != nil {
		return nil, 0, &DecodeError{Err: err}
	}
	res := pdf.Dict{}
	for key, val := range resIn {
		res[key] = val
	}
	xObjIn, err := pdf.GetDict(s.r, res["XObject"])
	if err != nil {
		return nil, 0, &DecodeError{Err: err}
	}
	xObj := pdf.Dict{}
	for key, val := range xObjIn {
		xObj[key] = val
	}
	res["XObject"] = xObj
	pageIn["Resources"] = res

	contents, err := pdf.Resolve(s.r, pageIn["Contents"])
	if err != nil {
		return nil, 0, &DecodeError{Err: err}
	}
	if a, isArray := contents.(pdf.Array); isArray {
		pageIn["Contents"] = a
	}

	copier := pdf.NewCopier(s.w, s.r)
	refOut := s.w.Alloc()
	if refIn != 0 {
		copier.Redirect(refIn, refOut)
	}
	pageOut, err := copier.CopyDict(pageIn)
	if err != nil {
		return nil, 0, &DecodeError{Err: err}
	}

	name := overlayName(xObj)
	pageOut["Resources"].(pdf.Dict)["XObject"].(pdf.Dict)[name] = overlay

	var body pdf.Array
	switch c := pageOut["Contents"].(type) {
	case pdf.Array:
		body = c
	case pdf.Reference:
		body = pdf.Array{c}
	}

	pre, err := s.writeContent(content.Operator{Name: content.OpPushGraphicsState})
	if err != nil {
		return nil, 0, &SerializationError{Err: err}
	}
	post, err := s.writeContent(
		content.Operator{Name: content.OpPopGraphicsState},
		content.Operator{Name: content.OpPushGraphicsState},
		content.Operator{Name: content.OpXObject, Args: []pdf.Object{name}},
		content.Operator{Name: content.OpPopGraphicsState},
	)
	if err != nil {
		return nil, 0, &SerializationError{Err: err}
	}

	all := make(pdf.Array, 0, len(body)+2)
	all = append(all, pre)
	all = append(all, body...)
	all = append(all, post)
	pageOut["Contents"] = all

	return pageOut, refOut, nil
}

// writeContent writes a content stream consisting of the given operators.
func (s *pageStamper) writeContent(ops ...content.Operator) (pdf.Reference, error) {
	ref := s.w.Alloc()
	stm, err := s.w.OpenStream(ref, nil, pdf.FilterCompress{})
	if err != nil {
		return 0, err
	}
	err = writeOperators(stm, ops)
	if err != nil {
		return 0, err
	}
	err = stm.Close()
	if err != nil {
		return 0, err
	}
	return ref, nil
}

func writeOperators(w io.Writer, ops []content.Operator) error {
	for _, op := range ops {
		err := content.WriteOperator(w, op)
		if err != nil {
			return err
		}
	}
	return nil
}

// overlayName returns an XObject name which is not yet used in xObj.
func overlayName(xObj pdf.Dict) pdf.Name {
	name := pdf.Name("Stamp")
	for i := 1; ; i++ {
		if _, used := xObj[name]; !used {
			return name
		}
		name = pdf.Name(fmt.Sprintf("Stamp%d", i))
	}
}
