package properties

import (
	"os"
	"path/filepath"
)

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

// DataPath joins elem under <ROOT_PATH>/data.
func DataPath(elem ...string) string {
	return filepath.Join(append([]string{RootPath(), "data"}, elem...)...)
}

func CopernicusClientID() string {
	return os.Getenv("COPERNICUS_CLIENT_ID")
}

func CopernicusClientSecret() string {
	return os.Getenv("COPERNICUS_CLIENT_SECRET")
}

func CopernicusTokenURL() string {
	return os.Getenv("COPERNICUS_TOKEN_URL")
}

func CopernicusBaseURL() string {
	return os.Getenv("COPERNICUS_BASE_URL")
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}

type Color struct {
	R, G, B uint8
}

// NDVIPalette is the 17-stop diverging ramp used for thumbnails, from -1 (white) to 1
// (dark green).
var NDVIPalette = []Color{
	{0xff, 0xff, 0xff}, {0xce, 0x7e, 0x45}, {0xdf, 0x92, 0x3d}, {0xf1, 0xb5, 0x55},
	{0xfc, 0xd1, 0x63}, {0x99, 0xb7, 0x18}, {0x74, 0xa9, 0x01}, {0x66, 0xa0, 0x00},
	{0x52, 0x94, 0x00}, {0x3e, 0x86, 0x01}, {0x20, 0x74, 0x01}, {0x05, 0x62, 0x01},
	{0x00, 0x4c, 0x00}, {0x02, 0x3b, 0x01}, {0x01, 0x2e, 0x01}, {0x01, 0x1d, 0x01},
	{0x01, 0x13, 0x01},
}
