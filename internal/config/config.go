// Package config loads the coordinator's on-disk TOML configuration into
// the phase.Config values each task's state machine runs with.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/xaynetics/pet-coordinator/common/constants"
	"github.com/xaynetics/pet-coordinator/fs"
	"github.com/xaynetics/pet-coordinator/internal/phase"
	"github.com/xaynetics/pet-coordinator/pkg/mask"
)

// MaskConfigTOML is the on-disk shape of a mask.Config.
type MaskConfigTOML struct {
	Group string `toml:"group"`
	Data  string `toml:"data"`
	Bound string `toml:"bound"`
}

func (c MaskConfigTOML) toMaskConfig() (mask.Config, error) {
	group, err := parseGroupType(c.Group)
	if err != nil {
		return mask.Config{}, err
	}
	data, err := parseDataType(c.Data)
	if err != nil {
		return mask.Config{}, err
	}
	bound, err := parseBoundType(c.Bound)
	if err != nil {
		return mask.Config{}, err
	}
	return mask.NewConfig(group, data, bound), nil
}

func parseGroupType(s string) (mask.GroupType, error) {
	switch s {
	case "integer":
		return mask.GroupInteger, nil
	case "prime":
		return mask.GroupPrime, nil
	default:
		return 0, fmt.Errorf("config: unknown group type %q", s)
	}
}

func parseDataType(s string) (mask.DataType, error) {
	switch s {
	case "f32":
		return mask.DataF32, nil
	case "f64":
		return mask.DataF64, nil
	case "i32":
		return mask.DataI32, nil
	case "i64":
		return mask.DataI64, nil
	default:
		return 0, fmt.Errorf("config: unknown data type %q", s)
	}
}

func parseBoundType(s string) (mask.BoundType, error) {
	switch s {
	case "b0":
		return mask.Bound0, nil
	case "b2":
		return mask.Bound2, nil
	case "b4":
		return mask.Bound4, nil
	case "b6":
		return mask.Bound6, nil
	default:
		return 0, fmt.Errorf("config: unknown bound type %q", s)
	}
}

// TaskTOML is the on-disk shape of a single task's configuration.
type TaskTOML struct {
	TaskID      string  `toml:"task_id"`
	SumRatio    float64 `toml:"sum_ratio"`
	UpdateRatio float64 `toml:"update_ratio"`

	SumQuorum    int `toml:"sum_quorum"`
	UpdateQuorum int `toml:"update_quorum"`
	Sum2Quorum   int `toml:"min_sum2_count"`

	MinSumTime    string `toml:"min_sum_time"`
	MaxSumTime    string `toml:"max_sum_time"`
	MinUpdateTime string `toml:"min_update_time"`
	MaxUpdateTime string `toml:"max_update_time"`
	MinSum2Time   string `toml:"min_sum2_time"`
	MaxSum2Time   string `toml:"max_sum2_time"`

	VectorMaskConfig MaskConfigTOML  `toml:"vector_mask_config"`
	ScalarMaskConfig *MaskConfigTOML `toml:"scalar_mask_config"`
	ModelSize        int             `toml:"model_size"`

	RejectDuplicateSumParticipants bool `toml:"reject_duplicate_sum_participants"`
}

// ServiceConfig is the top-level on-disk configuration: one or more tasks
// sharing a coordinator process, plus the listen address for the HTTP
// transport.
type ServiceConfig struct {
	ListenAddr  string     `toml:"listen_addr"`
	MetricsAddr string     `toml:"metrics_addr"`
	Tasks       []TaskTOML `toml:"task"`
}

// Load reads and parses a ServiceConfig from the TOML file at path.
func Load(path string) (*ServiceConfig, error) {
	if exists, err := fs.Exists(path); err != nil {
		return nil, fmt.Errorf("config: checking %s: %w", path, err)
	} else if !exists {
		return nil, fmt.Errorf("config: %s does not exist", path)
	}

	var cfg ServiceConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}
	for i := range cfg.Tasks {
		if cfg.Tasks[i].TaskID == "" {
			cfg.Tasks[i].TaskID = defaultTaskID()
		}
	}
	return &cfg, nil
}

// defaultTaskID resolves the task id a task.toml entry should use when it
// omits task_id: the PET_TASK_ID environment variable if set, otherwise
// constants.DefaultTaskID.
func defaultTaskID() string {
	if id := constants.GetTaskIDFromEnv(); id != "" {
		return id
	}
	return constants.DefaultTaskID
}

// PhaseConfigs converts every configured task into a phase.Config, resolving
// each task's timeouts and mask configs. When a task omits
// scalar_mask_config, the vector config is reused for the scalar and a
// warning is reported through warn (typically the process logger).
func (c *ServiceConfig) PhaseConfigs(warn func(taskID string, msg string)) (map[string]phase.Config, error) {
	out := make(map[string]phase.Config, len(c.Tasks))
	for _, t := range c.Tasks {
		pc, err := t.toPhaseConfig(warn)
		if err != nil {
			return nil, fmt.Errorf("config: task %q: %w", t.TaskID, err)
		}
		out[t.TaskID] = pc
	}
	return out, nil
}

func (t TaskTOML) toPhaseConfig(warn func(taskID, msg string)) (phase.Config, error) {
	vectorCfg, err := t.VectorMaskConfig.toMaskConfig()
	if err != nil {
		return phase.Config{}, err
	}

	scalarCfg := vectorCfg
	if t.ScalarMaskConfig != nil {
		scalarCfg, err = t.ScalarMaskConfig.toMaskConfig()
		if err != nil {
			return phase.Config{}, err
		}
	} else if warn != nil {
		warn(t.TaskID, "scalar_mask_config not set, reusing vector_mask_config")
	}

	minSumTime, err := parseDurationOr(t.MinSumTime, 0)
	if err != nil {
		return phase.Config{}, err
	}
	maxSumTime, err := parseDurationOr(t.MaxSumTime, 30*time.Second)
	if err != nil {
		return phase.Config{}, err
	}
	minUpdateTime, err := parseDurationOr(t.MinUpdateTime, 0)
	if err != nil {
		return phase.Config{}, err
	}
	maxUpdateTime, err := parseDurationOr(t.MaxUpdateTime, 30*time.Second)
	if err != nil {
		return phase.Config{}, err
	}
	minSum2Time, err := parseDurationOr(t.MinSum2Time, 0)
	if err != nil {
		return phase.Config{}, err
	}
	maxSum2Time, err := parseDurationOr(t.MaxSum2Time, 30*time.Second)
	if err != nil {
		return phase.Config{}, err
	}

	return phase.Config{
		TaskID:                         t.TaskID,
		SumRatio:                       t.SumRatio,
		UpdateRatio:                    t.UpdateRatio,
		SumQuorum:                      t.SumQuorum,
		UpdateQuorum:                   t.UpdateQuorum,
		Sum2Quorum:                     t.Sum2Quorum,
		MinSumTime:                     minSumTime,
		MaxSumTime:                     maxSumTime,
		MinUpdateTime:                  minUpdateTime,
		MaxUpdateTime:                  maxUpdateTime,
		MinSum2Time:                    minSum2Time,
		MaxSum2Time:                    maxSum2Time,
		VectorMaskConfig:               vectorCfg,
		ScalarMaskConfig:               scalarCfg,
		ModelSize:                      t.ModelSize,
		RejectDuplicateSumParticipants: t.RejectDuplicateSumParticipants,
	}, nil
}

func parseDurationOr(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}
