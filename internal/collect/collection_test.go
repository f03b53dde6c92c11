package collect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/pageweight/internal/analysis"
	"github.com/fluxbase-eu/pageweight/internal/design"
	"github.com/fluxbase-eu/pageweight/internal/fetch"
)

// fakeContent is an in-memory ContentAPI.
type fakeContent struct {
	collections []design.CollectionRef
	fields      map[string][]design.FieldRef
	items       map[string][]design.ItemRef
	values      map[string]*design.FieldValue // key: itemID/fieldID
	listErr     error
}

func (f *fakeContent) ListCollections(_ context.Context) ([]design.CollectionRef, error) {
	return f.collections, f.listErr
}

func (f *fakeContent) ListFields(_ context.Context, collectionID string) ([]design.FieldRef, error) {
	return f.fields[collectionID], nil
}

func (f *fakeContent) ListItems(_ context.Context, collectionID string) ([]design.ItemRef, error) {
	return f.items[collectionID], nil
}

func (f *fakeContent) GetFieldValue(_ context.Context, _, itemID, fieldID string) (*design.FieldValue, error) {
	return f.values[itemID+"/"+fieldID], nil
}

type fakeScanner struct {
	instances []design.ComponentInstance
	err       error
}

func (f *fakeScanner) ListComponentInstances(_ context.Context) ([]design.ComponentInstance, error) {
	return f.instances, f.err
}

type fakePublisher struct {
	url string
	err error
}

func (f *fakePublisher) PublishedURL(_ context.Context) (string, error) {
	return f.url, f.err
}

// fakeMeasurer returns fixed dimensions for every URL.
type fakeMeasurer struct {
	dims *design.Dimensions
	err  error
}

func (f *fakeMeasurer) Measure(_ context.Context, _ string) (*design.Dimensions, error) {
	return f.dims, f.err
}

func newBlogContent() *fakeContent {
	return &fakeContent{
		collections: []design.CollectionRef{{ID: "col-blog", Name: "Blog", Slug: "blog"}},
		fields: map[string][]design.FieldRef{
			"col-blog": {
				{ID: "f-cover", Name: "Cover", Kind: design.FieldImage},
				{ID: "f-title", Name: "Title", Kind: design.FieldText},
			},
		},
		items: map[string][]design.ItemRef{
			"col-blog": {{ID: "item-1", Slug: "first"}, {ID: "item-2", Slug: "second"}},
		},
		values: map[string]*design.FieldValue{
			"item-1/f-cover": {URL: "https://cdn.example.com/cover1.jpg", Alt: "Blog Post Cover", Width: 1600, Height: 900},
			"item-2/f-cover": {URL: "https://cdn.example.com/cover2-800x600.png"},
		},
	}
}

func TestCollectionCollector_StructuredAPI(t *testing.T) {
	c := NewCollectionCollector(newBlogContent(), nil, nil, nil, nil)
	result := c.Collect(context.Background(), nil)

	require.Len(t, result.Assets, 2)
	assert.True(t, result.DetectedNames["blog"])

	first := result.Assets[0]
	assert.Equal(t, "Blog Post Cover", first.Name)
	assert.Equal(t, analysis.OriginCollection, first.Origin)
	assert.Equal(t, "Blog", first.SourceCollection)
	assert.Equal(t, "first", first.SourceItemSlug)
	require.NotNil(t, first.Measured)
	assert.Equal(t, analysis.Dimensions{Width: 1600, Height: 900}, *first.Measured)

	// The second item has no API dimensions: the WxH token in the filename
	// is used instead.
	second := result.Assets[1]
	assert.Nil(t, second.Measured)
	assert.Equal(t, analysis.Dimensions{Width: 800, Height: 600}, second.Declared)
	assert.Equal(t, analysis.FormatPNG, second.Format)
}

func TestCollectionCollector_MeasurerPreferredOverHeuristics(t *testing.T) {
	measurer := &fakeMeasurer{dims: &design.Dimensions{Width: 2048, Height: 1024}}
	c := NewCollectionCollector(newBlogContent(), nil, nil, nil, measurer)
	result := c.Collect(context.Background(), nil)

	require.Len(t, result.Assets, 2)
	second := result.Assets[1]
	require.NotNil(t, second.Measured)
	assert.Equal(t, float64(2048), second.Measured.Width)
}

func TestCollectionCollector_ComponentControlScan(t *testing.T) {
	scanner := &fakeScanner{instances: []design.ComponentInstance{
		{NodeID: "inst-1", Name: "Card", Controls: map[string]string{
			"image":   "https://cdn.example.com/card.webp",
			"caption": "not a url",
		}},
	}}
	c := NewCollectionCollector(nil, scanner, nil, nil, nil)
	result := c.Collect(context.Background(), nil)

	require.Len(t, result.Assets, 1)
	assert.Equal(t, "https://cdn.example.com/card.webp", result.Assets[0].Identity)
	assert.Equal(t, "Card / image", result.Assets[0].Name)
}

func TestCollectionCollector_PublishedDiff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<img src="/dynamic/post-cover.jpg">
			<img src="https://cdn.example.com/hero.png">
		</body></html>`))
	}))
	defer srv.Close()

	publisher := &fakePublisher{url: srv.URL}
	client := fetch.NewClient(fetch.Config{})
	c := NewCollectionCollector(nil, nil, publisher, client, nil)

	// hero.png is already on the canvas; only the dynamic cover is new.
	canvasURLs := map[string]bool{"https://cdn.example.com/hero.png": true}
	result := c.Collect(context.Background(), canvasURLs)

	require.Len(t, result.Assets, 1)
	assert.Equal(t, srv.URL+"/dynamic/post-cover.jpg", result.Assets[0].Identity)
	assert.Equal(t, analysis.OriginCollection, result.Assets[0].Origin)
}

func TestCollectionCollector_UnpublishedSiteIsNotAnError(t *testing.T) {
	c := NewCollectionCollector(nil, nil, &fakePublisher{url: ""}, fetch.NewClient(fetch.Config{}), nil)
	result := c.Collect(context.Background(), nil)
	assert.Empty(t, result.Assets)
}

func TestCollectionCollector_StrategyFailureIsolation(t *testing.T) {
	// The structured API fails outright; the component scan still runs.
	content := &fakeContent{listErr: errors.New("api down")}
	scanner := &fakeScanner{instances: []design.ComponentInstance{
		{NodeID: "inst-1", Name: "Gallery", Controls: map[string]string{"photo": "https://cdn.example.com/p.jpg"}},
	}}
	c := NewCollectionCollector(content, scanner, nil, nil, nil)

	result := c.Collect(context.Background(), nil)
	require.Len(t, result.Assets, 1)
	assert.Equal(t, "https://cdn.example.com/p.jpg", result.Assets[0].Identity)
}

func TestGuessDimensionsFromURL(t *testing.T) {
	tests := []struct {
		url      string
		expected analysis.Dimensions
		ok       bool
	}{
		{"https://x/img-800x600.png", analysis.Dimensions{Width: 800, Height: 600}, true},
		{"https://x/photo.jpg?w=1200&h=630", analysis.Dimensions{Width: 1200, Height: 630}, true},
		{"https://x/photo.jpg?width=640&height=480", analysis.Dimensions{Width: 640, Height: 480}, true},
		{"https://x/plain.jpg", analysis.Dimensions{}, false},
		{"https://x/v2x3-archive.zip", analysis.Dimensions{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			dims, ok := GuessDimensionsFromURL(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, dims)
		})
	}
}
