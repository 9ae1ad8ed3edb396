package inkpost

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/inkpost/objectstore"
)

const (
	jpegQuality = 80
	// maxImagePixels bounds the bitmap a decode may allocate.
	maxImagePixels = 40_000_000
)

var errImageTooLarge = errors.New("image dimensions too large")

// upload is a multipart file read fully into memory.
type upload struct {
	Filename    string
	ContentType string
	Body        []byte
}

// readUpload returns the "file" part of a multipart request, or nil when the
// request carries none.
func (a *App) readUpload(c echo.Context) (*upload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, nil
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form").SetInternal(err)
	}
	if fh.Size > a.Config.MaxUploadBytes {
		return nil, echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("file too large (max %d bytes)", a.Config.MaxUploadBytes))
	}
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	body, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	ct := fh.Header.Get(echo.HeaderContentType)
	if ct == "" || ct == echo.MIMEOctetStream {
		ct = http.DetectContentType(body)
	}
	return &upload{Filename: fh.Filename, ContentType: ct, Body: body}, nil
}

// prepareImage downscales JPEG, PNG and GIF images wider than maxWidth and
// re-encodes them as JPEG. Anything else, including images that fail to
// decode, is returned unchanged. Images whose header declares more than
// maxImagePixels fail with errImageTooLarge before any pixel is decoded.
func prepareImage(u upload, maxWidth int) (upload, error) {
	if maxWidth <= 0 {
		return u, nil
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(u.Body))
	if err != nil {
		return u, nil
	}
	switch format {
	case "jpeg", "png", "gif":
	default:
		return u, nil
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return upload{}, errImageTooLarge
	}
	if cfg.Width <= maxWidth {
		return u, nil
	}

	img, _, err := image.Decode(bytes.NewReader(u.Body))
	if err != nil {
		return u, nil
	}
	bounds := img.Bounds()
	newH := bounds.Dy() * maxWidth / bounds.Dx()
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return upload{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return upload{
		Filename:    strings.TrimSuffix(u.Filename, filepath.Ext(u.Filename)) + ".jpg",
		ContentType: "image/jpeg",
		Body:        buf.Bytes(),
	}, nil
}

// storeUpload prepares u and sends it to object storage, returning the
// public URL. Upstream failures become 400s, as the client sees them.
func (a *App) storeUpload(c echo.Context, u upload) (string, error) {
	prepared, err := prepareImage(u, a.Config.ImageMaxWidth)
	if errors.Is(err, errImageTooLarge) {
		return "", echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("image too large (max %d pixels)", maxImagePixels)).SetInternal(err)
	}
	if err != nil {
		return "", err
	}
	url, err := a.Uploader.Upload(c.Request().Context(), objectstore.Object{
		Key:         objectstore.NewKey(prepared.Filename),
		Body:        prepared.Body,
		ContentType: prepared.ContentType,
	})
	if err != nil {
		c.Logger().Errorf("upload %s: %v", u.Filename, err)
		return "", echo.NewHTTPError(http.StatusBadRequest, "image upload failed").SetInternal(err)
	}
	return url, nil
}
