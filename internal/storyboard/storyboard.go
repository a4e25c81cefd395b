package storyboard

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/stagecast/stagecast/internal/timeline"
)

//go:embed schema.cue
var schemaSource []byte

// Definition is a decoded storyboard file.
type Definition struct {
	FrameRate int                `yaml:"frame_rate"`
	Width     int                `yaml:"width"`
	Height    int                `yaml:"height"`
	Globals   map[string]float64 `yaml:"globals"`
	Scenes    []SceneDef         `yaml:"scenes"`
	Flyovers  []TaskDef          `yaml:"flyovers"`
}

// SceneDef declares one scene in playback order.
type SceneDef struct {
	Name       string            `yaml:"name"`
	Selector   string            `yaml:"selector"`
	Markup     string            `yaml:"markup"`
	Style      map[string]string `yaml:"style"`
	Frames     int               `yaml:"frames"`
	Animations []AnimationDef    `yaml:"animations"`
}

// AnimationDef declares one animation within a scene.
type AnimationDef struct {
	Selector   string        `yaml:"selector"`
	Start      int           `yaml:"start"`
	Duration   int           `yaml:"duration"`
	Properties []PropertyDef `yaml:"properties"`
	Tasks      []TaskDef     `yaml:"tasks"`
}

// PropertyDef declares an animated property. From and To are strings:
// quoted numbers, literals, or "="-sigiled expressions.
type PropertyDef struct {
	Name string `yaml:"name"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Ease string `yaml:"ease"`
}

// TaskDef declares a task by registered handler name.
type TaskDef struct {
	Task   string         `yaml:"task"`
	Params map[string]any `yaml:"params"`
}

// Load reads and parses a storyboard file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, timeline.NewConfigurationError("read storyboard: %v", err)
	}
	return Parse(data)
}

// Parse decodes and schema-validates a storyboard document.
func Parse(data []byte) (*Definition, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, timeline.NewConfigurationError("parse storyboard: %v", err)
	}
	if err := validateSchema(raw); err != nil {
		return nil, timeline.NewConfigurationError("%v", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, timeline.NewConfigurationError("decode storyboard: %v", err)
	}
	return &def, nil
}

// validateSchema unifies the decoded document with the embedded CUE schema
// and requires the result to be fully concrete.
func validateSchema(raw any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile storyboard schema: %w", err)
	}
	root := schema.LookupPath(cue.ParsePath("#Storyboard"))
	if err := root.Err(); err != nil {
		return fmt.Errorf("lookup storyboard schema: %w", err)
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode storyboard document: %w", err)
	}

	if err := root.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("storyboard schema: %w", err)
	}
	return nil
}

// Build constructs a Story from a validated definition. Task declarations
// are checked against the registry, with per-task parameter validation,
// before the first frame can ever render.
func Build(def *Definition, reg *timeline.Registry, opts ...timeline.Option) (*timeline.Story, error) {
	opts = append([]timeline.Option{timeline.WithSize(def.Width, def.Height)}, opts...)
	story, err := timeline.New(def.FrameRate, reg, opts...)
	if err != nil {
		return nil, err
	}

	for name, v := range def.Globals {
		story.SetGlobal(name, v)
	}

	for _, sd := range def.Scenes {
		sc := &timeline.Scene{
			Name:           sd.Name,
			Selector:       sd.Selector,
			Markup:         sd.Markup,
			Style:          sd.Style,
			DeclaredFrames: sd.Frames,
		}
		for _, ad := range sd.Animations {
			a := &timeline.Animation{
				Selector: ad.Selector,
				Start:    ad.Start,
				Duration: ad.Duration,
			}
			for _, pd := range ad.Properties {
				if _, ok := timeline.EaseByName(pd.Ease); !ok {
					return nil, timeline.NewConfigurationError(
						"scene %q: property %q: unknown easing curve %q", sd.Selector, pd.Name, pd.Ease)
				}
				a.Properties = append(a.Properties, timeline.PropertyChange{
					Name: pd.Name, From: pd.From, To: pd.To, Ease: pd.Ease,
				})
			}
			for _, td := range ad.Tasks {
				wt, err := buildTask(reg, td)
				if err != nil {
					return nil, err
				}
				a.Tasks = append(a.Tasks, wt)
			}
			sc.Animations = append(sc.Animations, a)
		}
		if err := story.AddScene(sc); err != nil {
			return nil, err
		}
	}

	for _, td := range def.Flyovers {
		wt, err := buildTask(reg, td)
		if err != nil {
			return nil, err
		}
		story.AddFlyover(wt)
	}

	return story, nil
}

func buildTask(reg *timeline.Registry, td TaskDef) (*timeline.WorkTask, error) {
	params := timeline.Params(td.Params)
	if err := reg.Validate(td.Task, params); err != nil {
		return nil, err
	}
	return timeline.NewWorkTask(td.Task, params), nil
}
