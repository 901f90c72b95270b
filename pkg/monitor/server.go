package monitor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
)

type ImageContainer struct {
	name string
	data []byte
}

// Producer renders one plot on demand.
type Producer interface {
	Name() string
	GetImage() *ImageContainer
}

// Server renders registered producers on an interval and serves the
// resulting images grouped into buckets.
type Server struct {
	mu              sync.RWMutex
	images          map[string]map[string]*ImageContainer
	producerBuckets map[string]map[string]Producer
	lastViewed      map[string]time.Time
	port            int
	srv             *http.Server
	updateInterval  time.Duration
}

func NewServer(port int, updateInterval time.Duration) *Server {
	if updateInterval <= 0 {
		updateInterval = time.Second
	}
	return &Server{
		images:          make(map[string]map[string]*ImageContainer),
		producerBuckets: make(map[string]map[string]Producer),
		lastViewed:      make(map[string]time.Time),
		port:            port,
		srv:             &http.Server{Addr: fmt.Sprintf(":%d", port)},
		updateInterval:  updateInterval,
	}
}

func (s *Server) Register(bucket string, p Producer) {
	s.mu.Lock()
	b, ok := s.producerBuckets[bucket]
	if !ok {
		b = make(map[string]Producer)
		s.producerBuckets[bucket] = b
	}
	b[p.Name()] = p
	s.mu.Unlock()
}

func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

func (s *Server) refresh() {
	s.mu.RLock()
	buckets := make(map[string][]Producer)
	for name, bucket := range s.producerBuckets {
		// Skip buckets nobody is watching.
		if time.Since(s.lastViewed[name]) > 2*s.updateInterval {
			continue
		}
		for _, p := range bucket {
			buckets[name] = append(buckets[name], p)
		}
	}
	s.mu.RUnlock()

	for name, producers := range buckets {
		for _, p := range producers {
			img := p.GetImage()
			if img == nil {
				continue
			}
			s.mu.Lock()
			b, ok := s.images[name]
			if !ok {
				b = make(map[string]*ImageContainer)
				s.images[name] = b
			}
			b[img.name] = img
			s.mu.Unlock()
		}
	}
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.updateInterval):
				s.refresh()
			}
		}
	}()

	handler := httprouter.New()

	handler.GET("/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var key string
		s.mu.RLock()
		for name := range s.producerBuckets {
			key = name
			break
		}
		s.mu.RUnlock()

		w.Header().Set("Location", url.PathEscape(fmt.Sprintf("/view/%s", key)))
		w.WriteHeader(http.StatusFound)
	})

	handler.GET("/view/:bucket", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		bucket := params.ByName("bucket")

		s.mu.Lock()
		items, ok := s.producerBuckets[bucket]
		if ok {
			s.lastViewed[bucket] = time.Now()
		}
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		names := make([]string, 0, len(items))
		for name := range items {
			names = append(names, name)
		}
		sort.Strings(names)

		w.Header().Add("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><head><title>darcd monitor</title>`)
		fmt.Fprintf(w, `<meta http-equiv="refresh" content="%d"></head>`, int(s.updateInterval.Seconds())+1)
		fmt.Fprintf(w, `<body style="background-color: black">`)
		fmt.Fprintf(w, `<div style="display: flex; flex-direction: row; flex-wrap: wrap">`)
		for _, name := range names {
			fmt.Fprintf(w, `<div><img src="/img/%s/%s?%d" /></div>`, bucket, name, time.Now().UnixMicro())
		}
		fmt.Fprintf(w, `</div></body></html>`)
	})

	handler.GET("/img/:bucket/:img", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		bucketName := params.ByName("bucket")
		imgName := params.ByName("img")

		s.mu.Lock()
		s.lastViewed[bucketName] = time.Now()
		var img *ImageContainer
		if bucket, ok := s.images[bucketName]; ok {
			img = bucket[imgName]
		}
		s.mu.Unlock()

		if img == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Add("Content-Type", "image/png")
		w.Write(img.data)
	})

	s.srv.Handler = handler

	// The pipeline signals termination through ctx; take the HTTP server
	// down with it so Run never outlives the decoder.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
