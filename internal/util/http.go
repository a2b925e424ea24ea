package util

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// JSONResponse encodes a JSON Response object.
func JSONResponse(w http.ResponseWriter, d interface{}, statusCode int) {
	dj, err := json.Marshal(d)
	if err != nil {
		http.Error(w, "Error creating JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprintf(w, "%s", dj)
}
