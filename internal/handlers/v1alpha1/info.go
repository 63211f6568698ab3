package v1alpha1

import (
	"net/http"

	"github.com/dataforge/dataset-pipeline/api/v1alpha1"
	"github.com/dataforge/dataset-pipeline/pkg/version"
)

// (GET /api/v1/info)
func (h *ServiceHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.Get()

	respond(w, r, http.StatusOK, v1alpha1.Info{
		GitCommit:   versionInfo.GitCommit,
		VersionName: versionInfo.GitVersion,
	})
}

// (GET /health)
func Health(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, v1alpha1.Status{Status: "ok"})
}
