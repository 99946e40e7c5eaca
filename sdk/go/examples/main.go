package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"time"

	"Sentinel-X/internal/api"
	"Sentinel-X/internal/app"
	"Sentinel-X/sdk/go/sentinelx"
)

func main() {
	srv := httptest.NewServer(api.NewServer("", app.New()).Handler())
	defer srv.Close()

	client, err := sentinelx.NewClient(srv.URL, srv.Client())
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = client.Ingest(ctx, sentinelx.DataFeed{
		FeedID:   "celo-usd",
		Source:   map[string]string{"Oracle": "coingecko"},
		DataType: json.RawMessage(`"Price"`),
		RawData:  json.RawMessage(`{"price":0.65}`),
	})
	if err != nil {
		panic(err)
	}

	metrics, err := client.IndexerMetrics(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("indexer processed %d feeds (%d active)\n", metrics.TotalFeedsProcessed, metrics.ActiveFeeds)

	resp, err := client.Query(ctx, sentinelx.InferenceRequest{Prompt: "What is cUSD?", TaskType: "GeneralQuery"})
	if err != nil {
		panic(err)
	}
	fmt.Printf("answer (confidence %.2f): %s\n", resp.Confidence, resp.Output)

	info, err := client.ModelInfo(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("active provider %s/%s\n", info.Provider, info.Model)
}
