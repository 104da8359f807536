package dag

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"speckit-flow/internal/atomicfile"
)

// ArtifactVersion is the current DAG artifact schema version.
const ArtifactVersion = "1.0"

// Artifact is the serialized form described in spec.md §6 "DAG
// artifact schema": version, spec_id, generated_at, num_sessions, and
// a flat phase list with per-task fields.
type Artifact struct {
	Version     string          `yaml:"version"`
	SpecID      string          `yaml:"spec_id"`
	GeneratedAt time.Time       `yaml:"generated_at"`
	NumSessions int             `yaml:"num_sessions"`
	Phases      []ArtifactPhase `yaml:"phases"`
}

// ArtifactPhase is one phase's name and member tasks.
type ArtifactPhase struct {
	Name  string `yaml:"name"`
	Tasks []Task `yaml:"tasks"`
}

// ToArtifact flattens the DAG's phases into the serializable form.
func (d *DAG) ToArtifact(specID string, numSessions int, generatedAt time.Time) Artifact {
	art := Artifact{
		Version:     ArtifactVersion,
		SpecID:      specID,
		GeneratedAt: generatedAt,
		NumSessions: numSessions,
	}

	for i, phase := range d.Phases() {
		ap := ArtifactPhase{Name: phaseName(i)}
		for _, id := range phase {
			ap.Tasks = append(ap.Tasks, d.tasks[id].clone())
		}
		art.Phases = append(art.Phases, ap)
	}

	return art
}

func phaseName(i int) string {
	return "phase-" + strconv.Itoa(i)
}

// Save serializes the DAG to path as a DAG artifact document.
func (d *DAG) Save(path string, specID string, numSessions int) error {
	art := d.ToArtifact(specID, numSessions, time.Now().UTC())
	data, err := yaml.Marshal(art)
	if err != nil {
		return err
	}
	return atomicfile.Write(path, data, 0o644)
}

// Load reads a DAG artifact from path and rebuilds the DAG plus the
// spec id and session count it was generated with. Round-tripping
// through Save/Load is lossless for every Task field (including
// Session assignment) modulo the GeneratedAt timestamp.
func Load(path string) (*DAG, Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Artifact{}, err
	}

	var art Artifact
	if err := yaml.Unmarshal(data, &art); err != nil {
		return nil, Artifact{}, err
	}

	var tasks []Task
	for _, phase := range art.Phases {
		tasks = append(tasks, phase.Tasks...)
	}

	d, err := Build(tasks)
	if err != nil {
		return nil, Artifact{}, err
	}
	// Phases were already computed by the generator; recomputing here
	// is cheap and guarantees Load(Save(d)) produces identical phase
	// groupings even if the artifact was hand-edited.
	d.Phases()

	return d, art, nil
}
