package main

import (
	"io"
	"log"
	"os"

	"github.com/gorilla/handlers"
	"github.com/natefinch/lumberjack"
)

func customLogger(_ io.Writer, params handlers.LogFormatterParams) {
	r := params.Request
	ip := r.Header.Get("CF-Connecting-IP")
	if ip == "" {
		ip = r.RemoteAddr
	}
	geo := r.Header.Get("CF-IPCountry")
	if geo == "" {
		geo = "??"
	}
	ua := r.Header.Get("user-agent")
	log.Println("["+geo+" "+ip+"]", r.Method, params.StatusCode, r.RequestURI, "["+ua+"]", params.Size)
}

func createLogger(filename string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename: filename,
		MaxSize:  10,
		Compress: true,
	}
}

// setupLogging sends the global logger to stdout and the rotating file and
// returns a prefixed logger for subsystems.
func setupLogging(filename string) (*lumberjack.Logger, func(prefix string) *log.Logger) {
	lj := createLogger(filename)
	w := io.MultiWriter(lj, os.Stdout)
	log.SetOutput(w)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	return lj, func(prefix string) *log.Logger {
		return log.New(w, prefix, log.Ldate|log.Ltime|log.Lshortfile)
	}
}
