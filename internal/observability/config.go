package observability

import (
	nethttp "net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
)

// Config captures opt-in observability toggles that wire into the server.
type Config struct {
	EnablePprofTrace bool `json:"enablePprofTrace" yaml:"enablePprofTrace"`
}

// Mount registers the profiling endpoints under /debug/pprof when enabled.
func (c Config) Mount(router *mux.Router) {
	if router == nil || !c.EnablePprofTrace {
		return
	}
	router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("/debug/pprof/trace", pprof.Trace)
	router.PathPrefix("/debug/pprof/").HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		pprof.Index(w, r)
	})
}
