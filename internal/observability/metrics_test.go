package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSubmissionCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(Submissions().WithLabelValues("accepted"))
	Submissions().WithLabelValues("accepted").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(Submissions().WithLabelValues("accepted")))
}

func TestMetricsHandlerServesScrape(t *testing.T) {
	BehaviorMarks().WithLabelValues("copy").Inc()

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
