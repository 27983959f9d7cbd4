package dataimporter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/youroute/pkg/datastore"
	"github.com/travigo/youroute/pkg/tracking"
)

const stopsCSV = `stop_id,stop_name,stop_lat,stop_lon,location_type,wheelchair_boarding
A,High Street,1.2345,5.6789,0,1
B,Central Station,1.5,5.9,1,
C,Far Away,10,20,,
D,Broken,95,20,,
`

func TestImportStops(t *testing.T) {
	ctx := context.Background()
	service := tracking.NewService(datastore.NewMemoryStore())

	count, err := ImportStops(ctx, service, strings.NewReader(stopsCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stops, err := service.NearbyStops(ctx, 1.234, 5.678)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "A", stops[0].ID)
	assert.True(t, stops[0].HasFacility("wheelchair"))
}

func TestImportStopsReplacesCatalog(t *testing.T) {
	ctx := context.Background()
	service := tracking.NewService(datastore.NewMemoryStore())

	_, err := ImportStops(ctx, service, strings.NewReader(stopsCSV))
	require.NoError(t, err)

	_, err = ImportStops(ctx, service, strings.NewReader("stop_id,stop_name,stop_lat,stop_lon\nZ,New,1.2345,5.6789\n"))
	require.NoError(t, err)

	stops, err := service.NearbyStops(ctx, 1.234, 5.678)
	require.NoError(t, err)
	require.Len(t, stops, 1)
	assert.Equal(t, "Z", stops[0].ID)
}
