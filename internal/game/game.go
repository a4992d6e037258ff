// Package game is the window backend: it feeds ebiten input into a
// visualizer session and rasterizes the frames it submits.
package game

import (
	"errors"
	"image/color"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/iburimskiy/cymatic/internal/config"
	"github.com/iburimskiy/cymatic/internal/visualizer"
)

var background = color.RGBA{R: 4, G: 6, B: 12, A: 255}

// Game implements ebiten.Game and visualizer.Renderer.
type Game struct {
	session *visualizer.Session
	log     *slog.Logger

	frame    visualizer.Frame
	hasFrame bool

	width, height int
	input         input
	batch         batch
}

func New(log *slog.Logger) *Game {
	if log == nil {
		log = slog.Default()
	}
	return &Game{log: log}
}

// Attach connects the session driven by Update. The session must have been
// created with g as its renderer.
func (g *Game) Attach(s *visualizer.Session) { g.session = s }

// SubmitFrame keeps the frame until the next Draw. Both run on the ebiten
// game goroutine.
func (g *Game) SubmitFrame(f visualizer.Frame) error {
	g.frame = f
	g.hasFrame = true
	return nil
}

func (g *Game) Update() error {
	if g.session == nil {
		return errors.New("game: no session attached")
	}
	g.input.poll(g.session)
	if err := g.session.Step(time.Now()); err != nil {
		if errors.Is(err, visualizer.ErrQuit) {
			return ebiten.Termination
		}
		return err
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(background)
	if !g.hasFrame || g.frame.Field == nil {
		return
	}
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	g.batch.reset()
	g.frame.Project(w, h, g.batch.add)
	g.batch.draw(screen)
	g.frame.Field.Clean()

	ebitenutil.DebugPrintAt(screen, g.frame.Status.String(), 12, 12)
}

// Layout follows the window size so the projection aspect tracks resizes.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height = outsideWidth, outsideHeight
		if g.session != nil {
			g.session.Post(visualizer.Resize{Width: outsideWidth, Height: outsideHeight})
		}
	}
	return outsideWidth, outsideHeight
}

// Run opens the window and blocks until it is closed or quit is pressed.
func Run(cfg config.WindowConfig, g *Game) error {
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(cfg.FPS)

	g.log.Info("window backend started", "width", cfg.Width, "height", cfg.Height, "fps", cfg.FPS)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
