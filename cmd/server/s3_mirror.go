package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"estateempire.io/internal/persistence/mirror"
)

type mirrorRuntime struct {
	enabled      bool
	rotateLayout string
	mirror       *mirror.Mirror
}

func buildMirrorRuntime(dataDir string, logger *log.Logger) (*mirrorRuntime, error) {
	if !envBool("EE_S3_MIRROR", false) {
		return &mirrorRuntime{}, nil
	}

	bucket := strings.TrimSpace(os.Getenv("EE_S3_BUCKET"))
	if bucket == "" {
		return nil, fmt.Errorf("EE_S3_MIRROR=true but EE_S3_BUCKET is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	up, err := mirror.NewS3Uploader(ctx, os.Getenv("EE_S3_REGION"), bucket)
	if err != nil {
		return nil, err
	}

	m := mirror.New(up, dataDir, mirror.Options{
		Prefix:        os.Getenv("EE_S3_PREFIX"),
		Workers:       envInt("EE_S3_UPLOAD_WORKERS", 2),
		QueueCapacity: envInt("EE_S3_QUEUE_CAPACITY", 256),
		Logger:        logger,
	})
	return &mirrorRuntime{
		enabled:      true,
		rotateLayout: "2006-01-02-15-04", // 1-minute log segments to lower RPO.
		mirror:       m,
	}, nil
}

func (r *mirrorRuntime) Close() {
	if r == nil || r.mirror == nil {
		return
	}
	r.mirror.Close()
}

func (r *mirrorRuntime) Enqueue(localPath string) {
	if r == nil || !r.enabled || r.mirror == nil {
		return
	}
	r.mirror.Enqueue(localPath)
}

func (r *mirrorRuntime) Stats() mirror.Stats {
	if r == nil {
		return mirror.Stats{}
	}
	return r.mirror.Stats()
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
