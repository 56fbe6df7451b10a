package main

import (
	"encoding/json"
	"net/http"

	"github.com/shiftplan/shiftplan/internal/constraints"
)

// handleConstraintLibrary 返回引擎支持的全部约束及可配置参数
func handleConstraintLibrary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(constraints.LibraryResponse{Library: constraints.GetLibrary()})
}
