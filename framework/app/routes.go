package app

import (
	"context"
	"net/http"

	"github.com/km-arc/go-dicontainer/framework/container"
	gohttp "github.com/km-arc/go-dicontainer/framework/http"
	"github.com/km-arc/go-dicontainer/framework/routing"
)

// componentView is the JSON form of a container.DefinitionInfo.
type componentView struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Scope        string   `json:"scope"`
	Dependencies []string `json:"dependencies"`
}

func viewOf(info container.DefinitionInfo) componentView {
	deps := make([]string, len(info.Dependencies))
	for i, d := range info.Dependencies {
		deps[i] = d.String()
	}
	return componentView{ID: info.ID.String(), Type: info.Type.String(), Scope: info.Scope, Dependencies: deps}
}

// frameworkRoutes mounts the health and introspection endpoints.
//
//	GET /health                       → 200 {"data": {"status": "ok"}}
//	GET /container/components         → every definition
//	GET /container/components/{id}    → one definition, 404 when unknown
type frameworkRoutes struct {
	container.BaseProvider
}

func (p *frameworkRoutes) Register(*container.Builder) {}

func (p *frameworkRoutes) Boot(ctx context.Context, c *container.Container) error {
	router, err := container.Resolve[*routing.Router](ctx, c)
	if err != nil {
		return err
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		gohttp.NewResponse(w).Success(map[string]string{"status": "ok"})
	})
	router.Prefix("/container", func(r *routing.Router) {
		r.Get("/components", func(w http.ResponseWriter, req *http.Request) {
			defs := c.Definitions()
			views := make([]componentView, len(defs))
			for i, info := range defs {
				views[i] = viewOf(info)
			}
			gohttp.NewResponse(w).Success(views)
		})
		r.Get("/components/{id}", func(w http.ResponseWriter, req *http.Request) {
			id := routing.Param(req, "id")
			for _, info := range c.Definitions() {
				if info.ID.String() == id {
					gohttp.NewResponse(w).Success(viewOf(info))
					return
				}
			}
			gohttp.NewResponse(w).NotFound("Component " + id + " not found.")
		})
	})
	return nil
}
