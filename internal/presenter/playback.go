package presenter

import (
	"context"
	"fmt"
	"io"

	"github.com/example/mediatranslate/internal/backend"
	"github.com/example/mediatranslate/internal/models"
)

// Synthesizer turns text into a playable audio stream
type Synthesizer interface {
	Synthesize(ctx context.Context, in backend.SynthesizeRequest) (string, error)
	OpenAudio(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Player plays an audio stream until it ends or ctx is cancelled
type Player interface {
	Play(ctx context.Context, audio io.Reader) error
}

// playback is the single active text to speech request. Its fields are
// guarded by Presenter.mu; playGen identifies the current request.
type playback struct {
	synth  Synthesizer
	player Player

	playing    string
	loading    bool
	playGen    uint64
	playCancel context.CancelFunc
	playDone   chan struct{}
}

// stopLocked cancels the active playback and returns its done channel.
// It must be called with Presenter.mu held.
func (p *playback) stopLocked() chan struct{} {
	if p.playCancel != nil {
		p.playCancel()
	}
	done := p.playDone
	p.playGen++
	p.playing = ""
	p.loading = false
	p.playCancel = nil
	p.playDone = nil
	return done
}

// Play speaks the text of tab. Playing the active tab again stops it;
// playing another tab stops the active one before the new one starts.
func (p *Presenter) Play(tab string) error {
	if !p.HasTab(tab) {
		return fmt.Errorf("%w: %s", ErrUnknownTab, tab)
	}
	if p.synth == nil || p.player == nil {
		return fmt.Errorf("%w: text to speech is not configured", ErrPlayback)
	}
	if tab == TabOriginal && p.result.SourceLanguage() == models.SourceLanguageAuto {
		return ErrUndetectedSource
	}

	p.mu.Lock()
	if p.playing == tab {
		done := p.stopLocked()
		p.mu.Unlock()
		if done != nil {
			<-done
		}
		p.log.Infow("playback stopped", "tab", tab)
		p.notify()
		return nil
	}

	prevDone := p.stopLocked()
	p.playGen++
	gen := p.playGen
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.playing = tab
	p.loading = true
	p.playCancel = cancel
	p.playDone = done

	lang := tab
	if tab == TabOriginal {
		lang = p.result.SourceLanguage()
	}
	req := backend.SynthesizeRequest{
		Text:     models.TruncateRunes(p.Text(tab), MaxTTSRunes),
		Language: lang,
		Voice:    string(p.voice),
	}
	p.mu.Unlock()

	p.notify()
	go p.run(ctx, gen, done, prevDone, req)
	return nil
}

func (p *Presenter) run(ctx context.Context, gen uint64, done, prevDone chan struct{}, req backend.SynthesizeRequest) {
	defer close(done)
	// Never overlap with the previous player
	if prevDone != nil {
		<-prevDone
	}
	if ctx.Err() != nil {
		return
	}

	audioURL, err := p.synth.Synthesize(ctx, req)
	if err != nil {
		p.finish(ctx, gen, err, NoticeSynthesisFailed)
		return
	}
	audio, err := p.synth.OpenAudio(ctx, audioURL)
	if err != nil {
		p.finish(ctx, gen, err, NoticePlaybackFailed)
		return
	}

	p.mu.Lock()
	current := p.playGen == gen
	if current {
		p.loading = false
	}
	p.mu.Unlock()
	if current {
		p.log.Infow("playback started", "language", req.Language, "voice", req.Voice)
		p.notify()
	}

	err = p.player.Play(ctx, audio)
	audio.Close()
	p.finish(ctx, gen, err, NoticePlaybackFailed)
}

// finish clears the playing marker of gen and surfaces a notice for real failures
func (p *Presenter) finish(ctx context.Context, gen uint64, err error, notice string) {
	p.mu.Lock()
	if p.playGen != gen {
		p.mu.Unlock()
		return
	}
	p.playing = ""
	p.loading = false
	p.playCancel = nil
	p.playDone = nil
	if err != nil && ctx.Err() == nil {
		p.log.Warnw("playback failed", "error", fmt.Errorf("%w: %v", ErrPlayback, err))
		p.setNotice(notice)
	}
	p.mu.Unlock()

	p.notify()
}

// Stop stops any playback and waits for the player to exit
func (p *Presenter) Stop() {
	p.mu.Lock()
	active := p.playing != ""
	done := p.stopLocked()
	p.mu.Unlock()

	if done != nil {
		<-done
	}
	if active {
		p.notify()
	}
}

// Wait blocks until the active playback, if any, ends
func (p *Presenter) Wait() {
	p.mu.Lock()
	done := p.playDone
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Playing returns the tab being played or loaded, or ""
func (p *Presenter) Playing() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Loading reports whether the active playback is still being synthesized
func (p *Presenter) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}
