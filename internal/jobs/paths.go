package jobs

import (
	"path/filepath"
	"time"

	"stock-parody/manager-go/internal/config"
)

func cardDir(cfg config.Config) string {
	return filepath.Join(cfg.BaseOutputFolder, "parody_card")
}

func videoDir(cfg config.Config) string {
	return filepath.Join(cfg.BaseOutputFolder, "parody_video")
}

var kst = time.FixedZone("KST", 9*60*60)

func location(cfg config.Config) *time.Location {
	if cfg.Timezone == "" {
		return kst
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return kst
	}
	return loc
}
