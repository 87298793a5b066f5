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
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/font/standard"
	"seehuhn.de/go/pdf/graphics/content"
	"seehuhn.de/go/pdf/pagetree"
)

func init() {
	// keep pdfcpu from writing a configuration directory
	model.ConfigPath = "disable"
}

var testDate = time.Date(2024, time.March, 5, 9, 15, 0, 0, time.UTC)

// makeTestPDF returns a PDF file with the given number of pages.  The last
// page uses the size last, all other pages are A4.
func makeTestPDF(t *testing.T, numPages int, last *pdf.Rectangle) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	doc, err := document.WriteMultiPage(buf, document.A4, pdf.V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}
	F := standard.Helvetica.New()
	for i := range numPages {
		page := doc.AddPage()
		if i == numPages-1 {
			page.SetPageSize(last)
		}
		page.TextBegin()
		page.TextSetFont(F, 24)
		page.TextFirstLine(72, 72)
		page.TextShow(fmt.Sprintf("page %d", i+1))
		page.TextEnd()
		err = page.Close()
		if err != nil {
			t.Fatal(err)
		}
	}
	err = doc.Close()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// makeEmptyPDF returns a PDF file with an empty page tree.
func makeEmptyPDF(t *testing.T) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	w, err := pdf.NewWriter(buf, pdf.V1_7, nil)
	if err != nil {
		t.Fatal(err)
	}
	pagesRef := w.Alloc()
	err = w.Put(pagesRef, pdf.Dict{
		"Type":  pdf.Name("Pages"),
		"Kids":  pdf.Array{},
		"Count": pdf.Integer(0),
	})
	if err != nil {
		t.Fatal(err)
	}
	w.GetMeta().Catalog.Pages = pagesRef
	err = w.Close()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testAnnotator(t *testing.T) *Annotator {
	t.Helper()

	a, err := NewAnnotator(DefaultTemplate())
	if err != nil {
		t.Fatal(err)
	}
	a.Now = func() time.Time { return testDate }
	return a
}

type stampedPage struct {
	numPages int
	mediaBox *pdf.Rectangle
	overlay  content.Stream
	matrix   []float64
	contents int
}

// readStampedPage extracts the overlay form from an output file.
func readStampedPage(t *testing.T, data []byte) *stampedPage {
	t.Helper()

	r, err := pdf.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	res := &stampedPage{}
	res.numPages, err = pagetree.NumPages(r)
	if err != nil {
		t.Fatal(err)
	}
	_, pageDict, err := pagetree.GetPage(r, 0)
	if err != nil {
		t.Fatal(err)
	}
	res.mediaBox, err = pdf.GetRectangle(r, pageDict["MediaBox"])
	if err != nil {
		t.Fatal(err)
	}
	contents, err := pdf.GetArray(r, pageDict["Contents"])
	if err != nil {
		t.Fatal(err)
	}
	res.contents = len(contents)

	resources, err := pdf.GetDict(r, pageDict["Resources"])
	if err != nil {
		t.Fatal(err)
	}
	xObj, err := pdf.GetDict(r, resources["XObject"])
	if err != nil {
		t.Fatal(err)
	}
	stm, err := pdf.GetStream(r, xObj["Stamp"])
	if err != nil {
		t.Fatal(err)
	}
	if stm == nil {
		t.Fatal("overlay form not found")
	}
	res.matrix, err = pdf.GetFloatArray(r, stm.Dict["Matrix"])
	if err != nil {
		t.Fatal(err)
	}

	body, err := pdf.DecodeStream(r, stm, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer body.Close()
	res.overlay, err = content.ReadStream(body, pdf.GetVersion(r), content.Form, &content.Resources{})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func getNumber(obj pdf.Object) float64 {
	switch x := obj.(type) {
	case pdf.Integer:
		return float64(x)
	case pdf.Real:
		return float64(x)
	case pdf.Number:
		return float64(x)
	}
	return -1
}

// operands returns the numeric operands of all operators with the given
// name.
func operands(ops content.Stream, name content.OpName) [][]float64 {
	var res [][]float64
	for _, op := range ops {
		if op.Name != name {
			continue
		}
		var args []float64
		for _, arg := range op.Args {
			args = append(args, getNumber(arg))
		}
		res = append(res, args)
	}
	return res
}

func TestAnnotateLastPage(t *testing.T) {
	a := testAnnotator(t)

	for _, numPages := range []int{1, 2, 10} {
		t.Run(fmt.Sprintf("%d", numPages), func(t *testing.T) {
			in := makeTestPDF(t, numPages, document.Letter)

			res, err := a.Annotate(context.Background(), in)
			if err != nil {
				t.Fatal(err)
			}
			if res.PageIndex != numPages-1 || res.PageCount != numPages {
				t.Errorf("stamped page %d of %d", res.PageIndex, res.PageCount)
			}
			if res.Width != 612 || res.Height != 792 {
				t.Errorf("page size %gx%g", res.Width, res.Height)
			}

			page := readStampedPage(t, res.PDF)
			if page.numPages != 1 {
				t.Errorf("output has %d pages", page.numPages)
			}
			if d := cmp.Diff(document.Letter, page.mediaBox); d != "" {
				t.Errorf("MediaBox differs (-want +got):\n%s", d)
			}
			// q, original content, overlay
			if page.contents != 3 {
				t.Errorf("page has %d content streams, want 3", page.contents)
			}

			wantTd := [][]float64{
				{100, 546}, {110, 372}, {356, 372}, {150, 342}, {110, 312},
				{150, 282}, {306, 252}, {110, 226}, {256, 196}, {316, 176},
				{100, 117},
			}
			gotTd := operands(page.overlay, content.OpTextMoveOffset)
			if d := cmp.Diff(wantTd, gotTd); d != "" {
				t.Errorf("text positions differ (-want +got):\n%s", d)
			}

			dx, dy := a.Signature.Size()
			wantCM := [][]float64{{float64(dx) * 0.03, 0, 0, float64(dy) * 0.03, 280, 107}}
			gotCM := operands(page.overlay, content.OpTransform)
			if d := cmp.Diff(wantCM, gotCM, cmpopts.EquateApprox(0, 1e-4)); d != "" {
				t.Errorf("signature transform differs (-want +got):\n%s", d)
			}
			if n := len(operands(page.overlay, content.OpXObject)); n != 1 {
				t.Errorf("%d images drawn, want 1", n)
			}
		})
	}
}

func TestAnnotateOffsetMediaBox(t *testing.T) {
	a := testAnnotator(t)
	box := &pdf.Rectangle{LLx: 10, LLy: 20, URx: 622, URy: 812}
	in := makeTestPDF(t, 2, box)

	res, err := a.Annotate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Width != 612 || res.Height != 792 {
		t.Errorf("page size %gx%g", res.Width, res.Height)
	}

	page := readStampedPage(t, res.PDF)
	if d := cmp.Diff(box, page.mediaBox); d != "" {
		t.Errorf("MediaBox differs (-want +got):\n%s", d)
	}
	if d := cmp.Diff([]float64{1, 0, 0, 1, 10, 20}, page.matrix); d != "" {
		t.Errorf("form matrix differs (-want +got):\n%s", d)
	}
	gotTd := operands(page.overlay, content.OpTextMoveOffset)
	if d := cmp.Diff([]float64{100, 546}, gotTd[0]); d != "" {
		t.Errorf("first field differs (-want +got):\n%s", d)
	}
}

func TestAnnotateSelectPage(t *testing.T) {
	in := makeTestPDF(t, 3, document.Letter)

	cases := []struct {
		page    int
		want    int
		wantErr bool
	}{
		{page: 0, want: 0},
		{page: 2, want: 2},
		{page: -1, want: 2},
		{page: -3, want: 0},
		{page: 3, wantErr: true},
		{page: -4, wantErr: true},
	}
	for _, c := range cases {
		tmpl := DefaultTemplate()
		tmpl.Page = c.page
		a, err := NewAnnotator(tmpl)
		if err != nil {
			t.Fatal(err)
		}

		res, err := a.Annotate(context.Background(), in)
		if c.wantErr {
			var rangeErr *PageRangeError
			if !errors.As(err, &rangeErr) {
				t.Errorf("page %d: expected PageRangeError, got %v", c.page, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("page %d: %v", c.page, err)
			continue
		}
		if res.PageIndex != c.want {
			t.Errorf("page %d: stamped page %d, want %d", c.page, res.PageIndex, c.want)
		}
	}
}

func TestAnnotateEmpty(t *testing.T) {
	a := testAnnotator(t)
	in := makeEmptyPDF(t)

	_, err := a.Annotate(context.Background(), in)
	var emptyErr *EmptyDocumentError
	if !errors.As(err, &emptyErr) {
		t.Errorf("expected EmptyDocumentError, got %v", err)
	}
	if !IsUserError(err) {
		t.Error("empty document not classified as user error")
	}
}

func TestAnnotateGarbage(t *testing.T) {
	a := testAnnotator(t)

	for _, in := range [][]byte{nil, []byte("hello world")} {
		res, err := a.Annotate(context.Background(), in)
		if err == nil {
			t.Errorf("%q: got %d bytes of output", in, len(res.PDF))
			continue
		}
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("%q: expected DecodeError, got %T", in, err)
		}
	}
}

func TestAnnotateCancelled(t *testing.T) {
	a := testAnnotator(t)
	in := makeTestPDF(t, 1, document.Letter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Annotate(ctx, in)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// Two runs on the same input and day give the same document.  Object
// numbers may differ, so the documents are compared after parsing.
func TestAnnotateRepeatable(t *testing.T) {
	a := testAnnotator(t)
	in := makeTestPDF(t, 2, document.Letter)

	res1, err := a.Annotate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	a.Now = func() time.Time { return testDate.Add(3 * time.Hour) }
	res2, err := a.Annotate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	p1 := readStampedPage(t, res1.PDF)
	p2 := readStampedPage(t, res2.PDF)
	if d := cmp.Diff(p1.overlay, p2.overlay); d != "" {
		t.Errorf("overlay differs (-first +second):\n%s", d)
	}

	id1 := readID(t, res1.PDF)
	id2 := readID(t, res2.PDF)
	if !bytes.Equal(id1, id2) {
		t.Errorf("file IDs differ: %x != %x", id1, id2)
	}
}

func readID(t *testing.T, data []byte) []byte {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	id := r.GetMeta().ID
	if len(id) != 2 {
		t.Fatalf("file has no ID")
	}
	return id[0]
}

func TestAnnotateMetadata(t *testing.T) {
	a := testAnnotator(t)
	in := makeTestPDF(t, 1, document.Letter)

	res, err := a.Annotate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	r, err := pdf.NewReader(bytes.NewReader(res.PDF), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	meta := r.GetMeta()
	if meta.Info == nil {
		t.Fatal("missing Info dictionary")
	}
	if meta.Info.Producer != Producer {
		t.Errorf("Producer = %q", meta.Info.Producer)
	}
	created := time.Time(meta.Info.CreationDate)
	if created.Year() != 2024 || created.Month() != time.March || created.Day() != 5 {
		t.Errorf("CreationDate = %v", created)
	}
	if meta.Catalog.Metadata == 0 {
		t.Error("missing XMP metadata")
	}
}

func TestAnnotateDataURI(t *testing.T) {
	a := testAnnotator(t)
	in := makeTestPDF(t, 2, document.Letter)

	res, err := a.Annotate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	data, err := DecodeDataURI(res.DataURI)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, res.PDF) {
		t.Error("data URI does not contain the output file")
	}
}

func TestAnnotatePDFCPU(t *testing.T) {
	a := testAnnotator(t)
	in := makeTestPDF(t, 10, document.Letter)

	res, err := a.Annotate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(res.PDF), conf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pdfcpu counts %d pages", n)
	}

	dims, err := api.PageDims(bytes.NewReader(res.PDF), conf)
	if err != nil {
		t.Fatal(err)
	}
	if len(dims) != 1 || dims[0].Width != 612 || dims[0].Height != 792 {
		t.Errorf("pdfcpu page dimensions %v", dims)
	}

	err = api.Validate(bytes.NewReader(res.PDF), conf)
	if err != nil {
		t.Error(err)
	}
}

func TestAnnotateNoSignature(t *testing.T) {
	tmpl := DefaultTemplate()
	tmpl.Signature = nil
	a, err := NewAnnotator(tmpl)
	if err != nil {
		t.Fatal(err)
	}
	in := makeTestPDF(t, 1, document.Letter)

	res, err := a.Annotate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	page := readStampedPage(t, res.PDF)
	if n := len(operands(page.overlay, content.OpXObject)); n != 0 {
		t.Errorf("%d images drawn, want 0", n)
	}
	if n := len(operands(page.overlay, content.OpTextMoveOffset)); n != 11 {
		t.Errorf("%d text fields drawn, want 11", n)
	}
}

// An explicitly set signature image is drawn at the default position,
// if the template does not place it.
func TestAnnotateSignatureWithoutPlacement(t *testing.T) {
	tmpl := DefaultTemplate()
	tmpl.Signature = nil
	a, err := NewAnnotator(tmpl)
	if err != nil {
		t.Fatal(err)
	}
	a.Signature, err = BundledSignature()
	if err != nil {
		t.Fatal(err)
	}
	in := makeTestPDF(t, 1, document.Letter)

	res, err := a.Annotate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	page := readStampedPage(t, res.PDF)
	if n := len(operands(page.overlay, content.OpXObject)); n != 1 {
		t.Errorf("%d images drawn, want 1", n)
	}
	dx, dy := a.Signature.Size()
	wantCM := [][]float64{{float64(dx) * 0.03, 0, 0, float64(dy) * 0.03, 280, 107}}
	gotCM := operands(page.overlay, content.OpTransform)
	if d := cmp.Diff(wantCM, gotCM, cmpopts.EquateApprox(0, 1e-4)); d != "" {
		t.Errorf("signature transform differs (-want +got):\n%s", d)
	}
}

func TestOverlayName(t *testing.T) {
	cases := []struct {
		in   pdf.Dict
		want pdf.Name
	}{
		{pdf.Dict{}, "Stamp"},
		{pdf.Dict{"X0": nil}, "Stamp"},
		{pdf.Dict{"Stamp": nil}, "Stamp1"},
		{pdf.Dict{"Stamp": nil, "Stamp1": nil}, "Stamp2"},
	}
	for _, c := range cases {
		got := overlayName(c.in)
		if got != c.want {
			t.Errorf("overlayName(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPageIndex(t *testing.T) {
	for _, c := range []struct{ page, n, want int }{
		{-1, 1, 0}, {-1, 10, 9}, {0, 10, 0}, {9, 10, 9}, {-10, 10, 0},
	} {
		got, err := pageIndex(c.page, c.n)
		if err != nil || got != c.want {
			t.Errorf("pageIndex(%d, %d) = %d, %v", c.page, c.n, got, err)
		}
	}
	_, err := pageIndex(10, 10)
	var rangeErr *PageRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected PageRangeError, got %v", err)
	}
	if d := cmp.Diff(&PageRangeError{Page: 10, NumPages: 10}, rangeErr); d != "" {
		t.Errorf("error differs (-want +got):\n%s", d)
	}
}
