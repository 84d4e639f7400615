package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-viewer/internal/action"
)

type InfoHandler struct {
	dataDir   string
	journalOK bool
}

func NewInfoHandler(dataDir string, journalOK bool) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, journalOK: journalOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	Journal  bool     `json:"journal" doc:"Whether the action journal is available"`
	Features []string `json:"features" doc:"Available features"`
	Actions  int      `json:"actions" doc:"Number of registered action types"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-viewer",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		Journal:  h.journalOK,
		Features: []string{"shoreline-viewer", "zone-identify", "undo-redo", "duckdb-journal", "datastar-sse"},
		Actions:  len(action.Types()),
	}}, nil
}
