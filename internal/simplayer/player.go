package simplayer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jfmyers9/playwait/pkg/playwait"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidSource is returned by SetSource for an empty source.
	ErrInvalidSource = errors.New("simplayer: invalid source")

	// ErrNoSource is returned by Play when no source is set.
	ErrNoSource = errors.New("simplayer: no source")

	// ErrAborted is returned by a pending Play when the load it waited on
	// was replaced, the player was reset or paused, or the player closed.
	ErrAborted = errors.New("simplayer: play aborted")
)

// Config holds simulated player configuration
type Config struct {
	Clock           clock.Clock              // Time source (clock.NewMock() in tests)
	Logger          zerolog.Logger           // Debug output
	TickInterval    time.Duration            // Interval between timeupdate signals while playing
	ReadyDelay      time.Duration            // Delay from New to the ready signal
	LoadDelay       time.Duration            // Delay from SetSource to loadedmetadata
	DefaultDuration time.Duration            // Duration of media missing from Catalog
	Catalog         map[string]time.Duration // Media durations keyed by src
	Autoplay        bool                     // Start playback once a source can play
	AutoplayBlocked bool                     // Autoplay attempts fail with autoplay-failure
}

// DefaultConfig returns the default simulated player configuration
func DefaultConfig() Config {
	return Config{
		Clock:           clock.New(),
		Logger:          zerolog.Nop(),
		TickInterval:    250 * time.Millisecond,
		ReadyDelay:      10 * time.Millisecond,
		LoadDelay:       50 * time.Millisecond,
		DefaultDuration: time.Second,
	}
}

// Snapshot is a copy of the player state at one instant
type Snapshot struct {
	Ready    bool
	Loaded   bool
	Paused   bool
	Ended    bool
	Muted    bool
	Volume   float64
	Poster   string
	Position time.Duration
	Duration time.Duration
	Source   playwait.Source
}

// Player is an in-process media player following HTML media element
// semantics closely enough to exercise playwait. It decodes nothing: media
// is a duration and playback is a clock.
type Player struct {
	*emitter

	cfg    Config
	clock  clock.Clock
	logger zerolog.Logger

	mu          sync.Mutex
	ready       bool
	loaded      bool
	paused      bool
	ended       bool
	muted       bool
	volume      float64
	poster      string
	position    time.Duration
	duration    time.Duration
	source      playwait.Source
	pendingSeek *time.Duration
	catalog     map[string]time.Duration
	lastTick    time.Time
	closed      bool

	// generation changes whenever a load is replaced or the player reset
	generation uint64
	loadTimer  *clock.Timer
	readyTimer *clock.Timer
	loadedCh   chan struct{} // closed when the current load completes
	abortCh    chan struct{} // closed when the current load is abandoned

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a player and starts its playback loop. The player becomes
// ready after cfg.ReadyDelay. Zero-valued fields take DefaultConfig values.
func New(cfg Config) *Player {
	d := DefaultConfig()
	if cfg.Clock == nil {
		cfg.Clock = d.Clock
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = d.TickInterval
	}
	if cfg.LoadDelay <= 0 {
		cfg.LoadDelay = d.LoadDelay
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = d.DefaultDuration
	}

	catalog := make(map[string]time.Duration, len(cfg.Catalog))
	for src, dur := range cfg.Catalog {
		catalog[src] = dur
	}

	p := &Player{
		emitter:  newEmitter(),
		cfg:      cfg,
		clock:    cfg.Clock,
		logger:   cfg.Logger.With().Str("component", "simplayer").Logger(),
		paused:   true,
		volume:   1,
		catalog:  catalog,
		loadedCh: make(chan struct{}),
		abortCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}

	ticker := p.clock.Ticker(cfg.TickInterval)
	p.wg.Add(1)
	go p.run(ticker)

	p.readyTimer = p.clock.AfterFunc(cfg.ReadyDelay, p.becomeReady)

	return p
}

// AddMedia registers the duration of a source.
func (p *Player) AddMedia(src string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.catalog[src] = d
}

// Close stops the playback loop and pending timers. Pending Play calls
// return ErrAborted.
func (p *Player) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.readyTimer.Stop()
	p.abandonLoadLocked()
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Debug().Msg("Player closed")
}

// run drives playback until Close
func (p *Player) run(ticker *clock.Ticker) {
	defer p.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case now := <-ticker.C:
			p.tick(now)
		}
	}
}

// tick advances the playback position by the time elapsed since the last
// tick and emits the end sequence when the media runs out.
func (p *Player) tick(now time.Time) {
	p.mu.Lock()
	if p.paused || !p.loaded || p.ended {
		p.lastTick = now
		p.mu.Unlock()
		return
	}

	elapsed := now.Sub(p.lastTick)
	if elapsed < 0 {
		elapsed = 0
	}
	p.lastTick = now
	p.position += elapsed

	finished := p.position >= p.duration
	if finished {
		p.position = p.duration
		p.paused = true
		p.ended = true
	}
	p.mu.Unlock()

	p.emit(playwait.EventTimeUpdate)
	if finished {
		p.logger.Debug().Msg("Playback ended")
		p.emit(playwait.EventPause)
		p.emit(playwait.EventEnded)
	}
}

func (p *Player) becomeReady() {
	p.mu.Lock()
	if p.ready || p.closed {
		p.mu.Unlock()
		return
	}
	p.ready = true
	p.mu.Unlock()

	p.logger.Debug().Msg("Player ready")
	p.emit(playwait.EventReady)
}

// abandonLoadLocked cancels the in-flight load and aborts Play calls
// waiting on it. Must be called with p.mu held.
func (p *Player) abandonLoadLocked() {
	if p.loadTimer != nil {
		p.loadTimer.Stop()
		p.loadTimer = nil
	}
	close(p.abortCh)
	p.abortCh = make(chan struct{})
	p.loadedCh = make(chan struct{})
	p.generation++
}

// mediaDuration looks up src in the catalog. Must be called with p.mu held.
func (p *Player) mediaDuration(src string) time.Duration {
	if d, ok := p.catalog[src]; ok && d > 0 {
		return d
	}
	return p.cfg.DefaultDuration
}

// SetSource starts loading src. Metadata becomes available after the
// configured load delay.
func (p *Player) SetSource(src playwait.Source) error {
	if strings.TrimSpace(src.Src) == "" {
		return fmt.Errorf("%w: empty src", ErrInvalidSource)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrAborted
	}
	p.abandonLoadLocked()
	gen := p.generation
	p.source = src
	p.loaded = false
	p.paused = true
	p.ended = false
	p.position = 0
	p.duration = 0
	p.pendingSeek = nil
	p.mu.Unlock()

	p.logger.Debug().Str("src", src.Src).Msg("Source set")
	p.emit(playwait.EventSourceSet)
	p.emit(playwait.EventLoadStart)

	p.mu.Lock()
	if p.generation == gen && !p.closed {
		p.loadTimer = p.clock.AfterFunc(p.cfg.LoadDelay, func() { p.finishLoad(gen) })
	}
	p.mu.Unlock()

	return nil
}

// finishLoad completes the load of generation gen, if still current.
func (p *Player) finishLoad(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || p.closed {
		p.mu.Unlock()
		return
	}
	p.loaded = true
	p.loadTimer = nil
	p.duration = p.mediaDuration(p.source.Src)

	seeked := false
	if p.pendingSeek != nil {
		p.position = clampDuration(*p.pendingSeek, p.duration)
		p.pendingSeek = nil
		seeked = true
	}

	playing := !p.paused
	if playing {
		p.lastTick = p.clock.Now()
	}
	autoplay := p.cfg.Autoplay && p.paused
	p.mu.Unlock()

	p.logger.Debug().Dur("duration", p.Duration()).Msg("Metadata loaded")
	p.emit(playwait.EventLoadedMetadata)
	p.emit(playwait.EventLoadedData)
	if seeked {
		p.emit(playwait.EventTimeUpdate)
	}
	p.emit(playwait.EventCanPlay)
	if playing {
		p.emit(playwait.EventPlaying)
	}

	p.mu.Lock()
	if gen == p.generation {
		close(p.loadedCh)
	}
	p.mu.Unlock()

	if autoplay {
		go p.autoplay(gen)
	}
}

// autoplay attempts to start playback after a load, reporting the outcome
// with the autoplay lifecycle signals.
func (p *Player) autoplay(gen uint64) {
	p.mu.Lock()
	current := gen == p.generation
	blocked := p.cfg.AutoplayBlocked
	p.mu.Unlock()
	if !current {
		return
	}

	if blocked {
		p.logger.Debug().Msg("Autoplay blocked")
		p.emit(playwait.EventAutoplayFailure)
		return
	}

	if err := p.Play(context.Background()); err != nil {
		p.logger.Debug().Err(err).Msg("Autoplay failed")
		p.emit(playwait.EventAutoplayFailure)
		return
	}
	p.emit(playwait.EventAutoplaySuccess)
}

// Play starts playback. If metadata is still loading it blocks until the
// media can play, the load is abandoned, or ctx is done. Playing ended
// media restarts it from the beginning.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrAborted
	}
	if p.source.Src == "" {
		p.mu.Unlock()
		return ErrNoSource
	}
	if p.ended {
		p.position = 0
		p.ended = false
	}
	wasPaused := p.paused
	p.paused = false
	loaded := p.loaded
	if loaded {
		p.lastTick = p.clock.Now()
	}
	loadedCh, abortCh := p.loadedCh, p.abortCh
	p.mu.Unlock()

	if wasPaused {
		p.emit(playwait.EventPlay)
	}
	if loaded {
		if wasPaused {
			p.emit(playwait.EventPlaying)
		}
		return nil
	}

	select {
	case <-loadedCh:
		if p.Paused() {
			return ErrAborted
		}
		return nil
	case <-abortCh:
		return ErrAborted
	case <-p.done:
		return ErrAborted
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pause pauses playback and emits pause if the player was playing.
func (p *Player) Pause() {
	p.mu.Lock()
	if p.paused {
		p.mu.Unlock()
		return
	}
	p.paused = true
	p.mu.Unlock()

	p.emit(playwait.EventPause)
}

// SetCurrentTime seeks. Before metadata has loaded the position is kept and
// applied when the load completes.
func (p *Player) SetCurrentTime(t time.Duration) {
	if t < 0 {
		t = 0
	}

	p.mu.Lock()
	if !p.loaded {
		p.pendingSeek = &t
		p.mu.Unlock()
		return
	}
	p.position = clampDuration(t, p.duration)
	p.ended = false
	if !p.paused {
		p.lastTick = p.clock.Now()
	}
	p.mu.Unlock()

	p.emit(playwait.EventSeeking)
	p.emit(playwait.EventTimeUpdate)
	p.emit(playwait.EventSeeked)
}

// SetMuted emits volumechange when the muted state changes.
func (p *Player) SetMuted(muted bool) {
	p.mu.Lock()
	changed := p.muted != muted
	p.muted = muted
	p.mu.Unlock()

	if changed {
		p.emit(playwait.EventVolumeChange)
	}
}

// SetVolume clamps volume to [0, 1] and emits volumechange when it changes.
func (p *Player) SetVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}

	p.mu.Lock()
	changed := p.volume != volume
	p.volume = volume
	p.mu.Unlock()

	if changed {
		p.emit(playwait.EventVolumeChange)
	}
}

// SetPoster emits posterchange on every call, including unchanged values.
func (p *Player) SetPoster(poster string) {
	p.mu.Lock()
	p.poster = poster
	p.mu.Unlock()

	p.emit(playwait.EventPosterChange)
}

// Reset returns the player to its initial unloaded state, keeping ready,
// volume and muted. Pending loads and plays are abandoned.
func (p *Player) Reset() {
	p.mu.Lock()
	wasPlaying := !p.paused
	p.abandonLoadLocked()
	p.source = playwait.Source{}
	p.poster = ""
	p.position = 0
	p.duration = 0
	p.pendingSeek = nil
	p.loaded = false
	p.paused = true
	p.ended = false
	p.mu.Unlock()

	p.logger.Debug().Msg("Player reset")
	if wasPlaying {
		p.emit(playwait.EventPause)
	}
	p.emit(playwait.EventPlayerReset)
}

func (p *Player) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Player) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended
}

func (p *Player) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *Player) Poster() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.poster
}

func (p *Player) CurrentTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Duration is zero until metadata has loaded.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *Player) CurrentSource() playwait.Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// Snapshot returns a consistent copy of the player state.
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Snapshot{
		Ready:    p.ready,
		Loaded:   p.loaded,
		Paused:   p.paused,
		Ended:    p.ended,
		Muted:    p.muted,
		Volume:   p.volume,
		Poster:   p.poster,
		Position: p.position,
		Duration: p.duration,
		Source:   p.source,
	}
}

// clampDuration limits d to [0, limit].
func clampDuration(d, limit time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > limit {
		return limit
	}
	return d
}

// Verify Player implements playwait.Player at compile time.
var _ playwait.Player = (*Player)(nil)
