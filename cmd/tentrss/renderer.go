package main

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/labstack/echo/v4"
)

//go:embed templates/*
var TemplateFS embed.FS

// echo.Renderer backed by a pongo2 template set
type Renderer struct {
	TemplateSet *pongo2.TemplateSet
}

// Loads templates from dir within fsys. In debug mode templates are instead read from disk (relative to the working directory) and re-parsed on every render.
func NewRenderer(dir string, fsys *embed.FS, debug bool) (*Renderer, error) {
	var loader pongo2.TemplateLoader
	if debug {
		local, err := pongo2.NewLocalFileSystemLoader("cmd/tentrss/" + dir)
		if err != nil {
			return nil, fmt.Errorf("template loader: %w", err)
		}
		loader = local
	} else {
		sub, err := fs.Sub(fsys, strings.TrimSuffix(dir, "/"))
		if err != nil {
			return nil, fmt.Errorf("template loader: %w", err)
		}
		embedded, err := pongo2.NewHttpFileSystemLoader(http.FS(sub), "")
		if err != nil {
			return nil, fmt.Errorf("template loader: %w", err)
		}
		loader = embedded
	}

	set := pongo2.NewSet("tentrss", loader)
	set.Debug = debug
	return &Renderer{TemplateSet: set}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	var ctx pongo2.Context
	if data != nil {
		var ok bool
		ctx, ok = data.(pongo2.Context)
		if !ok {
			return fmt.Errorf("no pongo2.Context data was passed")
		}
	}

	t, err := r.TemplateSet.FromCache(name)
	if err != nil {
		return err
	}
	return t.ExecuteWriter(ctx, w)
}
