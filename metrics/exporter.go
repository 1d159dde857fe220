package metrics

import (
	"context"
	"net/http"

	"contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"

	"github.com/coho-storage/blobwarden/pkg/logging"
)

var log = logging.New("metrics")

func Exporter() http.Handler {
	exporter, err := prometheus.NewExporter(prometheus.Options{
		Namespace: "blobwarden",
	})
	if err != nil {
		log.Errorf("could not create the prometheus stats exporter: %v", err)
	}

	if err := view.Register(WardenViews...); err != nil {
		panic(err)
	}

	stats.Record(context.Background(), WardenInfo.M(int64(1)))
	return exporter
}
