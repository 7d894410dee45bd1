package pipeline

import (
	"github.com/clipferry/bot/internal/models"
	"github.com/clipferry/bot/internal/source"
)

// qualityRank orders the labels the selection logic understands. Unlabeled
// formats rank below everything else.
var qualityRank = map[string]int{
	"1080p": 4,
	"720p":  3,
	"480p":  2,
	"360p":  1,
}

// SelectFormat picks the encoding to transfer for the requested delivery
// mode. It returns a KindNoSuitableFormat error when the filtered list is
// empty.
func SelectFormat(formats []source.Format, mode models.DeliveryMode) (source.Format, error) {
	switch mode {
	case models.ModeBestVideo:
		return selectVideo(formats, false)
	case models.ModeReducedVideo:
		return selectVideo(formats, true)
	case models.ModeAudioOnly:
		return selectAudio(formats)
	}
	return source.Format{}, Errorf(KindNoSuitableFormat, "unknown delivery mode %q", mode)
}

func selectVideo(formats []source.Format, reduced bool) (source.Format, error) {
	var candidates []source.Format
	for _, f := range formats {
		if f.HasVideo && f.HasAudio {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return source.Format{}, Errorf(KindNoSuitableFormat, "no combined audio+video encoding available")
	}

	best := candidates[0]
	for _, f := range candidates[1:] {
		if videoBetter(f, best, reduced) {
			best = f
		}
	}
	return best, nil
}

// videoBetter reports whether a should replace b. Best mode prefers higher
// quality rank then higher bitrate; reduced mode prefers the low end of the
// labeled scale, trading resolution for a better chance under the size cap.
func videoBetter(a, b source.Format, reduced bool) bool {
	ra, rb := qualityRank[a.QualityLabel], qualityRank[b.QualityLabel]
	if reduced {
		// Labeled formats beat unlabeled ones even when hunting for small files.
		if (ra > 0) != (rb > 0) {
			return ra > 0
		}
		if ra != rb {
			return ra < rb
		}
	} else if ra != rb {
		return ra > rb
	}
	return a.Bitrate > b.Bitrate
}

func selectAudio(formats []source.Format) (source.Format, error) {
	var best source.Format
	found := false
	for _, f := range formats {
		if !f.HasAudio {
			continue
		}
		if !found {
			best, found = f, true
			continue
		}
		if audioBetter(f, best) {
			best = f
		}
	}
	if !found {
		return source.Format{}, Errorf(KindNoSuitableFormat, "no audio-capable encoding available")
	}
	return best, nil
}

// audioBetter prefers pure audio streams over muxed ones, then the highest
// audio bitrate.
func audioBetter(a, b source.Format) bool {
	if a.HasVideo != b.HasVideo {
		return !a.HasVideo
	}
	return a.AudioBitrate > b.AudioBitrate
}
