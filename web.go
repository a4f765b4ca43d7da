package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

func robotsHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "User-agent: *\nDisallow: /\n\n\n")
}

func createRouter(exitchan <-chan struct{}) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/robots.txt", robotsHandler).Methods("GET")

	router.HandleFunc("/", apiHandle(indexHandler)).Methods("GET")

	router.HandleFunc("/api/v1/config/save", apiHandle(apiSaveConfig)).Methods("GET")

	router.HandleFunc("/api/v1/layers", apiHandle(apiListLayers)).Methods("GET")
	router.HandleFunc("/api/v1/layers", apiHandle(apiAddLayer)).Methods("POST")
	router.HandleFunc("/api/v1/layers/{layer:[0-9]+}", apiHandle(apiGetLayer)).Methods("GET")
	router.HandleFunc("/api/v1/layers/{layer:[0-9]+}/settings", apiHandle(apiUpdateLayerSettings)).Methods("PUT")
	router.HandleFunc("/api/v1/layers/{layer:[0-9]+}/tiles/{x:-?[0-9]+}/{y:-?[0-9]+}", apiHandle(apiGetTile)).Methods("GET")
	router.HandleFunc("/api/v1/layers/{layer:[0-9]+}/tiles/{x:-?[0-9]+}/{y:-?[0-9]+}", apiHandle(apiSetTile)).Methods("PUT")
	router.HandleFunc("/api/v1/layers/{layer:[0-9]+}/tiles/{x:-?[0-9]+}/{y:-?[0-9]+}", apiHandle(apiRemoveTile)).Methods("DELETE")
	router.HandleFunc("/api/v1/layers/{layer:[0-9]+}/fill", apiHandle(apiFillLayer)).Methods("POST")
	router.HandleFunc("/api/v1/layers/{layer:[0-9]+}/import", apiHandle(apiImportCSV)).Methods("POST")
	router.HandleFunc("/api/v1/layers/{layer:[0-9]+}/dirty", apiHandle(apiDirtyChunks)).Methods("GET")
	router.HandleFunc("/layers/{layer:[0-9]+}/chunks/{cx:-?[0-9]+}/{cy:-?[0-9]+}/{scale:[0-9]+}/{renderer}.png", chunkImageHandler).Methods("GET")

	router.HandleFunc("/api/v1/frame", apiHandle(apiAdvanceFrame)).Methods("POST")
	router.HandleFunc("/api/v1/renderers", apiHandle(apiListRenderers)).Methods("GET")
	router.HandleFunc("/api/v1/textures", apiHandle(apiListTextures)).Methods("GET")
	router.HandleFunc("/api/v1/textures/{handle}", apiHandle(apiGetTexture)).Methods("GET")

	router.HandleFunc("/api/v1/storages", apiHandle(apiStoragesGET)).Methods("GET")
	router.HandleFunc("/api/v1/storages", apiHandle(apiStorageAdd)).Methods("PUT")
	router.HandleFunc("/api/v1/storages/layers", apiHandle(apiStoredLayersGET)).Methods("GET")
	router.HandleFunc("/api/v1/storages/{storage}/reinit", apiHandle(apiStorageReinit)).Methods("GET")

	router.HandleFunc("/api/v1/ws", wsClientHandlerWrapper(exitchan))

	router.HandleFunc("/debug/layer/{layer:[0-9]+}", debugLayerHandler).Methods("GET")
	router.HandleFunc("/debug/pprof/", pprof.Index)
	router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	router.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	router.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	router.Handle("/debug/pprof/allocs", pprof.Handler("allocs"))
	router.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	router.Handle("/debug/pprof/block", pprof.Handler("block"))
	router.Handle("/debug/pprof/mutex", pprof.Handler("mutex"))
	router.HandleFunc("/debug/gc", func(w http.ResponseWriter, r *http.Request) {
		runtime.GC()
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	})

	router1 := handlers.ProxyHeaders(router)
	router2 := handlers.CompressHandler(router1)
	router3 := handlers.CustomLoggingHandler(os.Stdout, router2, customLogger)
	router4 := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(router3)
	return router4
}

func runWeb(closechan <-chan struct{}, exitchan <-chan struct{}) {
	addr := cfg.GetDSString("0.0.0.0:3002", "web", "listen")
	if addr == "" {
		log.Println("Not starting web server because listen address is empty")
		<-closechan
		return
	}
	websrv := http.Server{
		Addr:    addr,
		Handler: createRouter(exitchan),
	}
	log.Println("Web server listens on " + addr)
	go func() {
		if err := websrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Web server returned an error: %s\n", err)
		}
	}()
	<-closechan
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := websrv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server Shutdown Failed:%+v", err)
	}
}
