package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sagoresarker/edge-speed-compare/internal/config"
	"github.com/sagoresarker/edge-speed-compare/internal/logger"
	"github.com/sagoresarker/edge-speed-compare/internal/metadata"
	"github.com/sagoresarker/edge-speed-compare/internal/probe"
)

func main() {
	edge := flag.String("edge", probe.DefaultEdgeTarget, "edge-delivered target")
	origin := flag.String("origin", probe.DefaultOriginTarget, "origin target")
	metadataURL := flag.String("metadata-url", "", "base URL of a running comparison service used for metadata lookups")
	timeout := flag.Duration("timeout", probe.DefaultProbeTimeout, "network exchange timeout")
	metadataTimeout := flag.Duration("metadata-timeout", probe.DefaultMetadataTimeout, "metadata lookup timeout")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log := logger.New("edgespeed-cli", config.ParseLevel(*logLevel))

	var resolver probe.MetadataResolver
	if *metadataURL != "" {
		resolver = metadata.NewClient(*metadataURL, nil)
	} else {
		resolver = metadata.NewResolver(metadata.Config{}, log)
	}

	prober := probe.NewProber(resolver, probe.ProberConfig{
		Timeout:         *timeout,
		MetadataTimeout: *metadataTimeout,
	}, log)
	comparer := probe.NewComparer(prober, nil, nil, probe.CompareConfig{}, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*(*timeout+*metadataTimeout)+time.Second)
	defer cancel()

	res := comparer.Compare(ctx, *edge, *origin)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		os.Exit(1)
	}
}
