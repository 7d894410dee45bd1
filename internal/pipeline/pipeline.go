package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/clipferry/bot/internal/logging"
	"github.com/clipferry/bot/internal/metrics"
	"github.com/clipferry/bot/internal/models"
	"github.com/clipferry/bot/internal/source"
)

const (
	// InlineVideoLimit is the largest artifact delivered as a natively
	// rendered video attachment.
	InlineVideoLimit = 50 << 20
	// DocumentLimit is the largest artifact the platform accepts at all.
	// Anything bigger falls back to audio-only.
	DocumentLimit = 2 << 30
	// DownloadTimeout bounds the wall-clock time of one download or
	// transcode run.
	DownloadTimeout = 20 * time.Minute
	// ProgressStep is the minimum percentage advance between status edits.
	ProgressStep = 10
)

// Gateway delivers transfer output into the originating chat. Implementations
// own platform specifics; the pipeline only sequences calls.
type Gateway interface {
	SendText(ctx context.Context, chat models.ChatRef, text string) error
	SendStatus(ctx context.Context, chat models.ChatRef, text string) (int, error)
	EditStatus(ctx context.Context, chat models.ChatRef, messageID int, text string) error
	Deliver(ctx context.Context, chat models.ChatRef, d models.Delivery) error
}

// Transcoder converts a media stream into a fixed-bitrate audio file,
// reporting fractional progress through the sink.
type Transcoder interface {
	ToAudio(ctx context.Context, in io.Reader, outPath string, durationSeconds int, sink ProgressSink) error
}

// Pipeline orchestrates encoding selection, streaming download, progress
// reporting, size-based routing, and artifact cleanup for one request.
type Pipeline struct {
	gateway    Gateway
	opener     source.Opener
	transcoder Transcoder
	tempDir    string

	inlineLimit   int64
	documentLimit int64
}

// Request is one accepted transfer: a chat to report into, the source URL,
// freshly fetched metadata, and the rendition the user asked for.
type Request struct {
	Chat models.ChatRef
	URL  string
	Mode models.DeliveryMode
	Meta source.Metadata
}

// New wires a Pipeline from its collaborators.
func New(gateway Gateway, opener source.Opener, transcoder Transcoder, tempDir string) *Pipeline {
	return &Pipeline{
		gateway:       gateway,
		opener:        opener,
		transcoder:    transcoder,
		tempDir:       tempDir,
		inlineLimit:   InlineVideoLimit,
		documentLimit: DocumentLimit,
	}
}

// Run executes the transfer. Errors carry a Kind for the chat boundary; an
// oversize video transparently re-enters in audio-only mode after a notice.
func (p *Pipeline) Run(ctx context.Context, req Request) error {
	ctx, span := logging.StartSpan(ctx, "pipeline.run")
	defer span.End()

	if req.Mode == models.ModeAudioOnly {
		return p.runAudio(ctx, req)
	}

	err := p.runVideo(ctx, req)
	if err == nil || !IsKind(err, KindOversize) {
		return err
	}

	logging.FromContext(ctx).Info("video exceeds platform limit, retrying as audio",
		"url", req.URL, "mode", req.Mode)
	metrics.OversizeFallbacks.Inc()
	_ = p.gateway.SendText(ctx, req.Chat,
		"The video is larger than the platform allows, so I'll send the audio track instead.")
	return p.runAudio(ctx, req)
}

func (p *Pipeline) runVideo(ctx context.Context, req Request) error {
	format, err := SelectFormat(req.Meta.Formats, req.Mode)
	if err != nil {
		return err
	}

	dlCtx, cancel := context.WithTimeout(ctx, DownloadTimeout)
	defer cancel()

	stream, declared, err := p.opener.Open(dlCtx, format)
	if err != nil {
		return classifyStreamErr(dlCtx, err)
	}
	defer stream.Close()

	artifact, err := NewArtifact(p.tempDir, "video", containerExt(format.Container))
	if err != nil {
		return E(KindStream, err)
	}
	defer artifact.Release()

	statusID := p.announce(ctx, req.Chat, "Downloading… 0%")
	sink := p.statusSink(ctx, req.Chat, statusID, "Downloading")

	total := declared
	if total <= 0 {
		total = EstimateSize(req.Meta.Duration)
	}
	progress := NewProgress(total)

	writer := io.MultiWriter(artifact, &progressWriter{progress: progress, sink: sink})
	if _, err := io.Copy(writer, stream); err != nil {
		return classifyStreamErr(dlCtx, err)
	}
	if progress.Complete() {
		sink(100)
	}
	if err := artifact.Close(); err != nil {
		return E(KindStream, err)
	}

	size, err := artifact.Size()
	if err != nil {
		return E(KindStream, err)
	}
	metrics.TransferBytes.Observe(float64(size))

	var delivery models.Delivery
	switch {
	case size <= p.inlineLimit:
		delivery = models.Delivery{
			Method:   models.DeliverInlineVideo,
			Path:     artifact.Path(),
			Filename: req.Meta.Title + containerExt(format.Container),
			Title:    req.Meta.Title,
			Duration: req.Meta.Duration,
		}
	case size <= p.documentLimit:
		delivery = models.Delivery{
			Method:   models.DeliverDocument,
			Path:     artifact.Path(),
			Filename: req.Meta.Title + inferExtension(artifact.Path(), format.Container),
			Title:    req.Meta.Title,
		}
	default:
		return Errorf(KindOversize, "artifact is %d bytes", size)
	}

	if err := p.gateway.Deliver(ctx, req.Chat, delivery); err != nil {
		return E(KindStream, fmt.Errorf("deliver %s: %w", delivery.Method, err))
	}
	return nil
}

func (p *Pipeline) runAudio(ctx context.Context, req Request) error {
	format, err := SelectFormat(req.Meta.Formats, models.ModeAudioOnly)
	if err != nil {
		return err
	}

	dlCtx, cancel := context.WithTimeout(ctx, DownloadTimeout)
	defer cancel()

	stream, _, err := p.opener.Open(dlCtx, format)
	if err != nil {
		return classifyStreamErr(dlCtx, err)
	}
	defer stream.Close()

	artifact, err := NewArtifact(p.tempDir, "audio", ".mp3")
	if err != nil {
		return E(KindStream, err)
	}
	defer artifact.Release()
	// The transcoder writes the file itself.
	if err := artifact.Close(); err != nil {
		return E(KindStream, err)
	}

	statusID := p.announce(ctx, req.Chat, "Converting… 0%")
	sink := p.statusSink(ctx, req.Chat, statusID, "Converting")

	if err := p.transcoder.ToAudio(dlCtx, stream, artifact.Path(), req.Meta.Duration, sink); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return E(KindDownloadTimeout, err)
		}
		return E(KindTranscode, err)
	}
	sink(100)

	if size, err := artifact.Size(); err == nil {
		metrics.TransferBytes.Observe(float64(size))
	}

	delivery := models.Delivery{
		Method:    models.DeliverAudio,
		Path:      artifact.Path(),
		Filename:  req.Meta.Title + ".mp3",
		Title:     req.Meta.Title,
		Performer: req.Meta.Uploader,
		Duration:  req.Meta.Duration,
	}
	if err := p.gateway.Deliver(ctx, req.Chat, delivery); err != nil {
		return E(KindStream, fmt.Errorf("deliver audio: %w", err))
	}
	return nil
}

// announce posts the initial status message. A send failure disables further
// edits but never aborts the transfer.
func (p *Pipeline) announce(ctx context.Context, chat models.ChatRef, text string) int {
	id, err := p.gateway.SendStatus(ctx, chat, text)
	if err != nil {
		logging.FromContext(ctx).Warn("status message send failed", "error", err)
		return 0
	}
	return id
}

// statusSink converts stepped percentage updates into status-message edits.
// Edit failures (rate limiting and the like) are swallowed.
func (p *Pipeline) statusSink(ctx context.Context, chat models.ChatRef, messageID int, verb string) ProgressSink {
	if messageID == 0 {
		return func(int) {}
	}
	return StepSink(ProgressStep, func(pct int) {
		text := fmt.Sprintf("%s… %d%%", verb, pct)
		if pct == 100 {
			text = verb + " done, sending…"
		}
		_ = p.gateway.EditStatus(ctx, chat, messageID, text)
	})
}

func classifyStreamErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return E(KindDownloadTimeout, err)
	}
	return E(KindStream, err)
}

// containerExt maps a declared container name onto a filename extension.
func containerExt(container string) string {
	if container == "" {
		return ".bin"
	}
	return "." + container
}

// inferExtension sniffs the artifact's leading bytes when the declared
// container is unreliable for document delivery.
func inferExtension(path, container string) string {
	f, err := os.Open(path)
	if err != nil {
		return containerExt(container)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	switch http.DetectContentType(head[:n]) {
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/avi":
		return ".avi"
	case "audio/mpeg":
		return ".mp3"
	case "application/ogg":
		return ".ogg"
	}
	return containerExt(container)
}
