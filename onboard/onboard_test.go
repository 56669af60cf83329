// (c) HaLOS Project 2025
//
// SPDX-License-Identifier: MIT

package onboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/halos/deckhand/config"
	"github.com/halos/deckhand/dashboard"
	"github.com/halos/deckhand/internal/test"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeService is an in-memory dashboard stand-in whose onboarding step
// machine is scripted as a sequence of steps: advancing pops the next step,
// but never past the last one, so a machine that is never advanced stays
// stuck on purpose.
type fakeService struct {
	steps  []string
	fail   map[string]error
	calls  map[string]int
	boards map[string]dashboard.Board
	apps   map[string]string
	placed []string
	home   string
	scheme string
}

var _ dashboard.Service = (*fakeService)(nil)

func newFakeService(steps ...string) *fakeService {
	return &fakeService{
		steps:  steps,
		fail:   map[string]error{},
		calls:  map[string]int{},
		boards: map[string]dashboard.Board{},
		apps:   map[string]string{},
	}
}

func (f *fakeService) advance() {
	if len(f.steps) > 1 {
		f.steps = f.steps[1:]
	}
}

func (f *fakeService) CurrentStep(_ context.Context) (dashboard.Step, error) {
	f.calls["CurrentStep"]++
	if err := f.fail["CurrentStep"]; err != nil {
		return dashboard.Step{}, err
	}
	return dashboard.Step{Current: f.steps[0]}, nil
}

func (f *fakeService) NextStep(_ context.Context) error {
	f.calls["NextStep"]++
	f.advance()
	return nil
}

func (f *fakeService) CreateAdminUser(_ context.Context, _, _ string) error {
	f.calls["CreateAdminUser"]++
	if err := f.fail["CreateAdminUser"]; err != nil {
		return err
	}
	f.advance()
	return nil
}

func (f *fakeService) InitServerSettings(_ context.Context, _ dashboard.ServerSettings) error {
	f.calls["InitServerSettings"]++
	if err := f.fail["InitServerSettings"]; err != nil {
		return err
	}
	f.advance()
	return nil
}

func (f *fakeService) Login(_ context.Context, _, _ string) error {
	f.calls["Login"]++
	return f.fail["Login"]
}

func (f *fakeService) BoardByName(_ context.Context, name string) (dashboard.Board, error) {
	f.calls["BoardByName"]++
	if err := f.fail["BoardByName"]; err != nil {
		return dashboard.Board{}, err
	}
	board, ok := f.boards[name]
	if !ok {
		return dashboard.Board{}, dashboard.ErrNotFound
	}
	return board, nil
}

func (f *fakeService) CreateBoard(_ context.Context, name string, columnCount int, _ bool) (string, error) {
	f.calls["CreateBoard"]++
	if err := f.fail["CreateBoard"]; err != nil {
		return "", err
	}
	id := fmt.Sprintf("board-%d", len(f.boards)+1)
	f.boards[name] = dashboard.Board{
		ID:       id,
		Name:     name,
		Sections: []dashboard.Section{{ID: "s1", Kind: "empty"}},
		Layouts:  []dashboard.Layout{{ID: "l1", Name: "base", ColumnCount: columnCount}},
	}
	return id, nil
}

func (f *fakeService) CreateApp(_ context.Context, app dashboard.App) (string, error) {
	f.calls["CreateApp"]++
	if err := f.fail["CreateApp"]; err != nil {
		return "", err
	}
	if _, ok := f.apps[app.Name]; ok {
		return "", dashboard.ErrAlreadyExists
	}
	id := fmt.Sprintf("app-%d", len(f.apps)+1)
	f.apps[app.Name] = id
	return id, nil
}

func (f *fakeService) PlaceTile(_ context.Context, board dashboard.Board, appID string, _ dashboard.TilePlacement) error {
	f.calls["PlaceTile"]++
	if err := f.fail["PlaceTile"]; err != nil {
		return err
	}
	f.placed = append(f.placed, board.ID+"/"+appID)
	return nil
}

func (f *fakeService) SetHomeBoard(_ context.Context, boardID string) error {
	f.calls["SetHomeBoard"]++
	if err := f.fail["SetHomeBoard"]; err != nil {
		return err
	}
	f.home = boardID
	return nil
}

func (f *fakeService) ChangeColorScheme(_ context.Context, scheme string) error {
	f.calls["ChangeColorScheme"]++
	if err := f.fail["ChangeColorScheme"]; err != nil {
		return err
	}
	f.scheme = scheme
	return nil
}

// branding returns a fully specified branding fixture with the entry tile
// enabled.
func branding() *config.Branding {
	return &config.Branding{
		Credentials: config.Credentials{
			AdminUsername: "admin",
			AdminPassword: "s3cr3t",
		},
		Board: config.Board{
			Name:        "Home",
			ColumnCount: 12,
			EntryTile: config.EntryTile{
				Enabled: true,
				Name:    "Cockpit",
				Href:    "https://halos.local:9090",
				Width:   2,
				Height:  1,
			},
		},
		Theme: config.Theme{DefaultColorScheme: "dark"},
	}
}

var _ = Describe("orchestrating dashboard onboarding", func() {

	BeforeEach(test.LogToGinkgo)

	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	run := func(dash *fakeService, opts ...Option) error {
		opts = append([]Option{WithStepPause(0)}, opts...)
		return New(dash, branding(), opts...).Run(ctx)
	}

	It("walks the step machine all the way to the terminal step", func() {
		dash := newFakeService(
			dashboard.StepStart, dashboard.StepUser, dashboard.StepSettings,
			dashboard.StepFinish)
		Expect(run(dash)).To(Succeed())
		Expect(dash.calls["NextStep"]).To(Equal(1))
		Expect(dash.calls["CreateAdminUser"]).To(Equal(1))
		Expect(dash.calls["InitServerSettings"]).To(Equal(1))
		Expect(dash.calls["Login"]).To(Equal(1))
		Expect(dash.boards).To(HaveKey("Home"))
		Expect(dash.home).To(Equal(dash.boards["Home"].ID))
		Expect(dash.scheme).To(Equal("dark"))
		Expect(dash.placed).To(ConsistOf(
			dash.boards["Home"].ID + "/" + dash.apps["Cockpit"]))
	})

	It("leaves a finished step machine alone", func() {
		dash := newFakeService(dashboard.StepFinish)
		Expect(run(dash)).To(Succeed())
		Expect(dash.calls["NextStep"]).To(BeZero())
		Expect(dash.calls["CreateAdminUser"]).To(BeZero())
		Expect(dash.calls["InitServerSettings"]).To(BeZero())
	})

	It("resumes from an intermediate step", func() {
		dash := newFakeService(dashboard.StepSettings, dashboard.StepFinish)
		Expect(run(dash)).To(Succeed())
		Expect(dash.calls["CreateAdminUser"]).To(BeZero())
		Expect(dash.calls["InitServerSettings"]).To(Equal(1))
	})

	It("advances over steps it doesn't know", func() {
		dash := newFakeService("telemetry-consent", dashboard.StepFinish)
		Expect(run(dash)).To(Succeed())
		Expect(dash.calls["NextStep"]).To(Equal(1))
	})

	It("fails the run immediately when the administrator account cannot be created", func() {
		dash := newFakeService(dashboard.StepUser, dashboard.StepFinish)
		dash.fail["CreateAdminUser"] = errors.New("weak password")
		Expect(run(dash)).To(MatchError(
			ContainSubstring("cannot create administrator account")))
		Expect(dash.calls["InitServerSettings"]).To(BeZero())
		Expect(dash.calls["Login"]).To(BeZero())
	})

	It("gives up on a step machine that never finishes", func() {
		dash := newFakeService(dashboard.StepStart)
		Expect(run(dash, WithMaxSteps(3))).To(MatchError(
			ContainSubstring("still not finished after 3 steps")))
		Expect(dash.calls["CurrentStep"]).To(Equal(3))
	})

	It("fails when the dashboard session cannot be established", func() {
		dash := newFakeService(dashboard.StepFinish)
		dash.fail["Login"] = errors.New("unauthorized")
		Expect(run(dash)).To(MatchError(
			ContainSubstring("cannot establish dashboard session")))
		Expect(dash.calls["BoardByName"]).To(BeZero())
	})

	It("doesn't recreate an existing board", func() {
		dash := newFakeService(dashboard.StepFinish)
		dash.boards["Home"] = dashboard.Board{
			ID:       "b1",
			Name:     "Home",
			Sections: []dashboard.Section{{ID: "s1", Kind: "empty"}},
			Layouts:  []dashboard.Layout{{ID: "l1", Name: "base"}},
		}
		Expect(run(dash)).To(Succeed())
		Expect(dash.calls["CreateBoard"]).To(BeZero())
		Expect(dash.home).To(Equal("b1"))
	})

	It("treats an already existing entry tile app as satisfied", func() {
		dash := newFakeService(dashboard.StepFinish)
		dash.apps["Cockpit"] = "app-1"
		Expect(run(dash)).To(Succeed())
		Expect(dash.calls["PlaceTile"]).To(BeZero())
	})

	It("pushes on through failing post-login phases, reporting them all", func() {
		dash := newFakeService(dashboard.StepFinish)
		dash.fail["SetHomeBoard"] = errors.New("flaky")
		dash.fail["ChangeColorScheme"] = errors.New("flakier")
		err := run(dash)
		Expect(err).To(MatchError(ContainSubstring("cannot set home board")))
		Expect(err).To(MatchError(ContainSubstring("cannot apply color scheme")))
		Expect(dash.calls["ChangeColorScheme"]).To(Equal(1),
			"a failing home board phase must not stop the color scheme phase")
	})

	It("doesn't redo completed onboarding work on a second run", func() {
		dash := newFakeService(
			dashboard.StepStart, dashboard.StepUser, dashboard.StepSettings,
			dashboard.StepFinish)
		Expect(run(dash)).To(Succeed())
		Expect(run(dash)).To(Succeed())
		Expect(dash.calls["CreateAdminUser"]).To(Equal(1))
		Expect(dash.calls["InitServerSettings"]).To(Equal(1))
		Expect(dash.calls["CreateBoard"]).To(Equal(1))
		Expect(dash.placed).To(HaveLen(1),
			"the entry tile must not be placed a second time")
	})

	It("honors context cancellation between step iterations", func() {
		dash := newFakeService(dashboard.StepStart, dashboard.StepFinish)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := New(dash, branding()).Run(cctx)
		Expect(err).To(MatchError(context.Canceled))
	})

})
