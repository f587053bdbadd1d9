package fx

import (
	"github.com/orgball2608/story-playback-engine/internal/repositories/viewrecord"
	"go.uber.org/fx"
)

var Module = fx.Options(
	viewrecord.Module,
)
