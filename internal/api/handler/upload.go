package handler

import (
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"book_market/internal/app/service"
	"book_market/internal/common"
)

const (
	coverField   = "coverImage"
	formMemory   = 1 << 20
	formOverhead = 1 << 20
	sniffLen     = 512
)

// allowedCovers maps accepted file extensions to the sniffed content type
// they must carry.
var allowedCovers = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// bookForm is a parsed multipart listing form. Close releases temp files.
type bookForm struct {
	form  *multipart.Form
	cover *service.CoverUpload
	file  multipart.File
}

func (f *bookForm) Close() {
	if f.file != nil {
		f.file.Close()
	}
	if f.form != nil {
		f.form.RemoveAll()
	}
}

func (f *bookForm) value(key string) (string, bool) {
	vals, ok := f.form.Value[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

func (f *bookForm) str(key string) *string {
	v, ok := f.value(key)
	if !ok {
		return nil
	}
	return &v
}

func (f *bookForm) float(key string) (*float64, error) {
	v, ok := f.value(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return nil, fmt.Errorf("%s must be a finite number: %w", key, common.ErrBadRequest)
	}
	return &n, nil
}

func (f *bookForm) int(key string) (*int, error) {
	v, ok := f.value(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%s must be a whole number up to %d: %w", key, math.MaxInt32, common.ErrBadRequest)
	}
	i := int(n)
	return &i, nil
}

// parseBookForm reads a multipart body holding listing fields and at most one
// cover image no larger than maxCover bytes.
func parseBookForm(w http.ResponseWriter, r *http.Request, maxCover int64) (*bookForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCover+formOverhead)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, common.ErrPayloadTooLarge
		}
		return nil, fmt.Errorf("invalid multipart form: %w", common.ErrBadRequest)
	}

	f := &bookForm{form: r.MultipartForm}
	for field, headers := range f.form.File {
		if field != coverField {
			f.Close()
			return nil, fmt.Errorf("unexpected file field %q: %w", field, common.ErrBadRequest)
		}
		if len(headers) > 1 {
			f.Close()
			return nil, fmt.Errorf("only one cover image is allowed: %w", common.ErrBadRequest)
		}
	}

	headers := f.form.File[coverField]
	if len(headers) == 0 {
		return f, nil
	}
	if err := f.openCover(headers[0], maxCover); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (f *bookForm) openCover(fh *multipart.FileHeader, maxCover int64) error {
	if fh.Size > maxCover {
		return common.ErrPayloadTooLarge
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	want, ok := allowedCovers[ext]
	if !ok {
		return common.ErrUnsupportedMedia
	}

	file, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded cover: %w", err)
	}
	f.file = file

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read uploaded cover: %w", err)
	}
	if http.DetectContentType(head[:n]) != want {
		return common.ErrUnsupportedMedia
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind uploaded cover: %w", err)
	}

	f.cover = &service.CoverUpload{Ext: ext, ContentType: want, Size: fh.Size, Body: file}
	return nil
}

func (f *bookForm) createRequest() (service.CreateBookRequest, error) {
	req := service.CreateBookRequest{}
	if v := f.str("title"); v != nil {
		req.Title = *v
	}
	if v := f.str("author"); v != nil {
		req.Author = *v
	}
	if v := f.str("description"); v != nil {
		req.Description = *v
	}
	var err error
	if req.Price, err = f.float("price"); err != nil {
		return req, err
	}
	if req.Stock, err = f.int("stock"); err != nil {
		return req, err
	}
	return req, nil
}

func (f *bookForm) updateRequest() (service.UpdateBookRequest, error) {
	req := service.UpdateBookRequest{
		Title:       f.str("title"),
		Author:      f.str("author"),
		Description: f.str("description"),
	}
	var err error
	if req.Price, err = f.float("price"); err != nil {
		return req, err
	}
	if req.Stock, err = f.int("stock"); err != nil {
		return req, err
	}
	return req, nil
}
