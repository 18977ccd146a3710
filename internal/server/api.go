package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"ip_forest/internal/config"
	"ip_forest/internal/dataType"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxRulesBody caps rule uploads on /sets/load
const maxRulesBody = 32 << 20

// AdminTokenHeader carries admin_token on requests that change sets
const AdminTokenHeader = "IPForest-Admin-Token"

type setAPI struct {
	cfg     *config.MainConfig
	ruleSet *config.RuleSet
}

type setInfo struct {
	Name  string             `json:"name"`
	Nodes dataType.TreeStats `json:"nodes"`
}

type matchResult struct {
	Set     string `json:"set"`
	IP      string `json:"ip"`
	Matched bool   `json:"matched"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] Failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// requireAdmin rejects requests without the configured admin token. With no
// token configured the set changing endpoints stay disabled.
func (a *setAPI) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.AdminToken == "" {
			writeError(w, http.StatusForbidden, fmt.Errorf("admin API disabled, set admin_token to enable it"))
			return
		}
		token := r.Header.Get(AdminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(token), []byte(a.cfg.AdminToken)) != 1 {
			log.Printf("[WARNING] rejected admin request from %s to %s", r.RemoteAddr, r.URL.Path)
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid admin token"))
			return
		}
		next(w, r)
	}
}

func setName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.URL.Query().Get("set")
	if name == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing set parameter"))
		return "", false
	}
	return name, true
}

func (a *setAPI) handleMatch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	name, ok := setName(w, r)
	if !ok {
		return
	}
	ip := r.URL.Query().Get("ip")
	writeJSON(w, http.StatusOK, matchResult{
		Set:     name,
		IP:      ip,
		Matched: a.ruleSet.Forest.Match(name, ip),
	})
}

func (a *setAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	names := a.ruleSet.Forest.Names()
	sets := make([]setInfo, 0, len(names))
	for _, name := range names {
		st, ok := a.ruleSet.Forest.Stats(name)
		if !ok {
			continue
		}
		sets = append(sets, setInfo{Name: name, Nodes: st})
	}
	writeJSON(w, http.StatusOK, sets)
}

func (a *setAPI) handleHas(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	name, ok := setName(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"has": a.ruleSet.Forest.Has(name)})
}

func (a *setAPI) handleReset(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	name, ok := setName(w, r)
	if !ok {
		return
	}
	a.ruleSet.Forest.Reset(name, a.maxNodes(r, name))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *setAPI) handleReload(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	name, ok := setName(w, r)
	if !ok {
		return
	}
	if err := a.ruleSet.ReloadSet(name); err != nil {
		a.writeSetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleLoad replaces a set with the rules in the request body.
func (a *setAPI) handleLoad(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	name, ok := setName(w, r)
	if !ok {
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxRulesBody)
	defer func() {
		if err := body.Close(); err != nil {
			log.Printf("[WARNING] handleLoad: Failed to close request body: %v", err)
		}
	}()
	src := "request from " + r.RemoteAddr
	if err := a.ruleSet.Forest.LoadReader(name, src, body, a.maxNodes(r, name)); err != nil {
		a.writeSetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *setAPI) handleAppend(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	name, ok := setName(w, r)
	if !ok {
		return
	}
	line := strings.TrimSpace(r.FormValue("line"))
	if line == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing line parameter"))
		return
	}
	if err := a.ruleSet.Forest.Append(name, line); err != nil {
		a.writeSetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *setAPI) handleCompact(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	name, ok := setName(w, r)
	if !ok {
		return
	}
	if !a.ruleSet.Forest.Compact(name) {
		a.writeSetError(w, fmt.Errorf("%w: %s", dataType.ErrUnknownSet, name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *setAPI) handleFree(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	name, ok := setName(w, r)
	if !ok {
		return
	}
	if !a.ruleSet.Forest.Free(name) {
		a.writeSetError(w, fmt.Errorf("%w: %s", dataType.ErrUnknownSet, name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// maxNodes takes the limit from the request, falling back to the configured one
func (a *setAPI) maxNodes(r *http.Request, name string) int {
	if v := r.URL.Query().Get("max_nodes"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return a.ruleSet.MaxNodes(name)
}

func (a *setAPI) writeSetError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dataType.ErrUnknownSet):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, dataType.ErrParse), errors.Is(err, dataType.ErrMalformedAddress):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, dataType.ErrOutOfMemory):
		writeError(w, http.StatusInsufficientStorage, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (a *setAPI) handleHealthCheck(w http.ResponseWriter, r *http.Request) {

	var builder strings.Builder
	builder.WriteString("ok\n")
	builder.WriteString("version=")
	builder.WriteString(dataType.IPForestVersion)
	builder.WriteString("\n")
	builder.WriteString("time=")
	builder.WriteString(time.Now().Format(time.RFC3339))
	builder.WriteString("\n")
	builder.WriteString("ts=")
	builder.WriteString(strconv.FormatFloat(float64(time.Now().UnixNano())/1e9, 'f', 3, 64))
	builder.WriteString("\n")
	builder.WriteString("sets=")
	builder.WriteString(strconv.Itoa(len(a.ruleSet.Forest.Names())))
	builder.WriteString("\n")
	builder.WriteString("node=")
	builder.WriteString(a.cfg.NodeName)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(builder.String())); err != nil {
		log.Printf("[ERROR] handleHealthCheck: Error writing response: %v", err)
	}
}
