package gui

import (
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"github.com/saber-data/saber/internal/gallery"
)

// itemIndex parses and bounds-checks the 'index' query parameter.
func (ws *WebServer) itemIndex(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("index")
	if raw == "" {
		return 0, fmt.Errorf("missing 'index' parameter")
	}
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 || idx >= ws.dataset.NumItems {
		return 0, fmt.Errorf("invalid 'index' parameter %q", raw)
	}
	return idx, nil
}

// handleItems returns the session summary: item count, classes, and every
// saved label.
func (ws *WebServer) handleItems(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	labels, err := ws.db.AllLabels(ws.session.ID)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load labels: %v", err))
		return
	}

	// JSON object keys must be strings.
	labelsJSON := make(map[string][]int, len(labels))
	for idx, classes := range labels {
		labelsJSON[strconv.Itoa(idx)] = classes
	}

	resp := map[string]interface{}{
		"session_id":  ws.session.ID,
		"num_items":   ws.dataset.NumItems,
		"class_names": ws.dataset.ClassNames,
		"labels":      labelsJSON,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "Failed to write items")
		return
	}
}

// handleItemImage renders one item (frame crop with mask overlay) as PNG.
func (ws *WebServer) handleItemImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	idx, err := ws.itemIndex(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	img, err := ws.dataset.Image(idx)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read image: %v", err))
		return
	}
	mask, err := ws.dataset.Mask(idx)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read mask: %v", err))
		return
	}

	rendered := gallery.RenderItem(img, mask, ws.dataset.ItemSize)
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, rendered); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "Failed to encode image")
		return
	}
}

// handleItemLabels reads (GET) or replaces (POST) the class set of one
// item. Saving is idempotent; posting the same classes twice is a no-op.
func (ws *WebServer) handleItemLabels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	idx, err := ws.itemIndex(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		classes, err := ws.db.ItemLabels(ws.session.ID, idx)
		if err != nil {
			ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load labels: %v", err))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"index": idx, "classes": classes})

	case http.MethodPost:
		var body struct {
			Classes []int `json:"classes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
			return
		}
		for _, class := range body.Classes {
			if class < 0 || class >= len(ws.dataset.ClassNames) {
				ws.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("class %d out of range", class))
				return
			}
		}
		if err := ws.db.SetItemLabels(ws.session.ID, idx, body.Classes); err != nil {
			ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save labels: %v", err))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})

	default:
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleProgress reports how many items carry at least one label.
func (ws *WebServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	labeled, err := ws.db.Progress(ws.session.ID)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get progress: %v", err))
		return
	}
	json.NewEncoder(w).Encode(map[string]int{
		"labeled": labeled,
		"total":   ws.dataset.NumItems,
	})
}

// handleExport writes the saved labels into the dataset's labels array.
// Exporting twice produces the same store.
func (ws *WebServer) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	labels, err := ws.db.AllLabels(ws.session.ID)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load labels: %v", err))
		return
	}
	if err := ws.dataset.WriteLabels(labels); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to export labels: %v", err))
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"exported": len(labels),
	})
}
