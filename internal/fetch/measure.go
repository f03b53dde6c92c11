package fetch

import (
	"context"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/pageweight/internal/apperr"
	"github.com/fluxbase-eu/pageweight/internal/design"
)

// InitVips starts the libvips runtime. Call once at process startup before
// any measurement; safe to skip when measurement is never used.
func InitVips() {
	vips.LoggingSettings(func(messageDomain string, verbosity vips.LogLevel, message string) {
		log.Debug().Str("domain", messageDomain).Msg(message)
	}, vips.LogLevelWarning)
	vips.Startup(nil)
}

// ShutdownVips releases libvips resources.
func ShutdownVips() {
	vips.Shutdown()
}

// Measure implements design.Measurer: it downloads the asset and decodes the
// header to read intrinsic pixel dimensions. Decode failures are classified
// as network/API soft failures, not fatal.
func (c *Client) Measure(ctx context.Context, url string) (*design.Dimensions, error) {
	body, err := c.FetchBytes(ctx, url)
	if err != nil {
		return nil, err
	}

	img, err := vips.NewImageFromBuffer(body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindAPI, "fetch.Measure", err)
	}
	defer img.Close()

	return &design.Dimensions{
		Width:  float64(img.Width()),
		Height: float64(img.Height()),
	}, nil
}

var _ design.Measurer = (*Client)(nil)
