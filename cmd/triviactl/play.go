package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/trivia-engine/internal/catalog"
	"github.com/gokatarajesh/trivia-engine/internal/quiz"
	"github.com/gokatarajesh/trivia-engine/internal/sampler"
	"github.com/gokatarajesh/trivia-engine/internal/schedule"
)

type playOptions struct {
	question string
	answer   string
	count    int
	seconds  int
	cooldown time.Duration
	seed     int64
}

func newPlayCmd() *cobra.Command {
	var opts playOptions

	cmd := &cobra.Command{
		Use:   "play <file.json|file.yaml>",
		Short: "Play a quiz from a package file in the terminal",
		Long: "Play a quiz from a package file in the terminal.\n\n" +
			"Type an answer and press enter. Commands: :pause, :resume, :end, :restart, :quit.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := loadPackageFile(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return play(ctx, pkg, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.question, "question", catalog.NameAttr, "attribute shown as the question")
	cmd.Flags().StringVar(&opts.answer, "answer", "", "attribute the player answers (required)")
	cmd.Flags().IntVar(&opts.count, "count", 10, "questions per round, 0 for the whole package")
	cmd.Flags().IntVar(&opts.seconds, "seconds", 0, "seconds per question, 0 for no countdown")
	cmd.Flags().DurationVar(&opts.cooldown, "cooldown", quiz.DefaultCooldown, "pause after each graded answer")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "sampler seed, 0 for a random round")
	_ = cmd.MarkFlagRequired("answer")
	return cmd
}

func play(ctx context.Context, pkg catalog.Package, opts playOptions, in io.Reader, out io.Writer) error {
	smp := sampler.New()
	if opts.seed != 0 {
		smp = sampler.NewWithSource(rand.NewSource(opts.seed))
	}
	machine := quiz.NewMachine(quiz.Options{Cooldown: opts.cooldown, Sampler: smp})

	term := newTerminal(out)
	runner := quiz.NewRunner(machine, schedule.New(nil), term.observe)
	defer runner.Close()

	_, err := runner.Dispatch(quiz.Initialize{Package: pkg, Settings: quiz.Settings{
		PackageID:      pkg.ID,
		QuestionAttr:   opts.question,
		AnswerAttr:     opts.answer,
		TotalQuestions: opts.count,
		TimeLimit:      opts.seconds,
	}})
	if err != nil {
		return fmt.Errorf("start quiz: %w", err)
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		term.drain()

		var ev quiz.Event
		switch line {
		case ":quit":
			return nil
		case ":pause":
			ev = quiz.Pause{}
		case ":resume":
			ev = quiz.Resume{}
		case ":end":
			ev = quiz.End{}
		case ":restart":
			ev = quiz.QuickRestart{}
		default:
			ev = quiz.Submit{Input: line}
		}

		sess, err := runner.Dispatch(ev)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		// Only an answer waits for the next prompt; control commands return at once.
		if _, answered := ev.(quiz.Submit); answered && sess.Updating {
			select {
			case <-term.ready:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return scanner.Err()
}

// terminal renders session changes. It runs as the runner observer, so it
// only writes output and signals the input loop.
type terminal struct {
	mu    sync.Mutex
	out   io.Writer
	round int
	shown [2]int
	ready chan struct{}
}

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out, shown: [2]int{-1, -1}, ready: make(chan struct{}, 1)}
}

func (t *terminal) observe(s quiz.Session, effects []quiz.Effect) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, eff := range effects {
		switch e := eff.(type) {
		case quiz.CancelCooldown:
			if !s.Ended {
				t.round++
			}
		case quiz.Graded:
			res := s.Results[e.Index]
			switch {
			case e.Correct:
				fmt.Fprintln(t.out, "  correct")
			case e.Input == "":
				fmt.Fprintf(t.out, "  time is up, the answer is %s\n", res.Answer)
			default:
				fmt.Fprintf(t.out, "  wrong, the answer is %s\n", res.Answer)
			}
		case quiz.Finished:
			fmt.Fprintf(t.out, "finished (%s): %d/%d correct\n", e.Reason, s.Points, len(s.Results))
			fmt.Fprintln(t.out, "type :restart for another round or :quit to exit")
			t.signal()
			return
		}
	}

	if !s.Started || s.Ended || s.Updating {
		return
	}
	if s.Paused {
		fmt.Fprintln(t.out, "paused, type :resume to continue")
		t.signal()
		return
	}
	key := [2]int{t.round, s.Index}
	if key == t.shown {
		return
	}
	t.shown = key

	cur, _ := s.Current()
	prompt := fmt.Sprintf("[%d/%d] %s", s.Index+1, len(s.Results), cur.Question)
	if s.Settings.TimeLimit > 0 {
		prompt += fmt.Sprintf(" (%ds)", s.TimeLeft)
	}
	fmt.Fprintln(t.out, prompt)
	t.signal()
}

func (t *terminal) signal() {
	select {
	case t.ready <- struct{}{}:
	default:
	}
}

// drain drops a pending signal left by a timeout or the first question.
func (t *terminal) drain() {
	select {
	case <-t.ready:
	default:
	}
}
