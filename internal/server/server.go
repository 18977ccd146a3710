package server

import (
	"ip_forest/internal/action"
	"ip_forest/internal/check"
	"ip_forest/internal/config"
	"ip_forest/internal/dataType"
	"ip_forest/internal/utils"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StartServer starts the HTTP server
func StartServer(cfg *config.MainConfig, ruleSet *config.RuleSet) error {
	log.Printf("HTTP Server listening on :%s ...", cfg.Port)
	return http.ListenAndServe(":"+cfg.Port, NewHandler(cfg, ruleSet))
}

// NewHandler wires the gatekeeper, the set API, health and metrics
func NewHandler(cfg *config.MainConfig, ruleSet *config.RuleSet) http.Handler {
	mux := http.NewServeMux()
	api := &setAPI{cfg: cfg, ruleSet: ruleSet}

	mux.HandleFunc(cfg.WebPath+"/health_check", api.handleHealthCheck)
	mux.HandleFunc(cfg.WebPath+"/match", api.handleMatch)
	mux.HandleFunc(cfg.WebPath+"/sets", api.handleList)
	mux.HandleFunc(cfg.WebPath+"/sets/has", api.handleHas)
	mux.HandleFunc(cfg.WebPath+"/sets/reset", api.requireAdmin(api.handleReset))
	mux.HandleFunc(cfg.WebPath+"/sets/reload", api.requireAdmin(api.handleReload))
	mux.HandleFunc(cfg.WebPath+"/sets/load", api.requireAdmin(api.handleLoad))
	mux.HandleFunc(cfg.WebPath+"/sets/append", api.requireAdmin(api.handleAppend))
	mux.HandleFunc(cfg.WebPath+"/sets/compact", api.requireAdmin(api.handleCompact))
	mux.HandleFunc(cfg.WebPath+"/sets/free", api.requireAdmin(api.handleFree))
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		userRequestData := processRequestData(cfg, r)

		decision := check.Run(userRequestData, ruleSet, check.DefaultChecks)

		utils.LogDebug(userRequestData, decision.Get().String(), decision.Rule())
		// return response
		if decision.Get() == action.Allow {
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte("Allowed")); err != nil {
				utils.LogError(userRequestData, "Error writing response: "+err.Error(), "CheckMain")
			}
		} else if decision.Get() == action.Block {
			w.WriteHeader(http.StatusForbidden)
			if _, err := w.Write([]byte("Blocked")); err != nil {
				utils.LogError(userRequestData, "Error writing response: "+err.Error(), "CheckMain")
			}
		} else {
			// should not reach here
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	return mux
}

func processRequestData(cfg *config.MainConfig, r *http.Request) dataType.UserRequest {

	var clientIP string
	for _, headerName := range cfg.ConnectingIPHeaders {
		if ipVal := r.Header.Get(headerName); ipVal != "" {
			if strings.Contains(ipVal, ",") {
				ipVal = strings.Split(ipVal, ",")[0]
			}
			clientIP = strings.TrimSpace(ipVal)
			break
		}
	}

	if clientIP == "" {
		remoteAddr := r.RemoteAddr
		ipStr, _, err := net.SplitHostPort(remoteAddr)
		if err != nil {
			clientIP = remoteAddr
		} else {
			clientIP = ipStr
		}
	}

	var clientURI string
	for _, headerName := range cfg.ConnectingURIHeaders {
		if uriVal := r.Header.Get(headerName); uriVal != "" {
			clientURI = uriVal
			break
		}
	}
	if clientURI == "" {
		clientURI = r.RequestURI
	}

	var clientHost string
	for _, headerName := range cfg.ConnectingHostHeaders {
		if hostVal := r.Header.Get(headerName); hostVal != "" {
			clientHost = hostVal
			break
		}
	}
	if clientHost == "" {
		clientHost = r.Host
	}

	return dataType.UserRequest{
		RemoteIP:  clientIP,
		Uri:       clientURI,
		Host:      clientHost,
		UserAgent: r.UserAgent(),
	}
}
