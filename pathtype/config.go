package pathtype

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// BikeClassWeights 自行车分设施等级距离的时间附加权重
type BikeClassWeights struct {
	Class1 float64 `yaml:"class1"`
	Class2 float64 `yaml:"class2"`
	Bad    float64 `yaml:"bad"`
	Worst  float64 `yaml:"worst"`
}

// TransitWeights 公交各时间分量的权重
// F..Z为九类车内时间（本地公交、快线、轨道等）
type TransitWeights struct {
	F            float64 `yaml:"f"`
	G            float64 `yaml:"g"`
	B            float64 `yaml:"b"`
	P            float64 `yaml:"p"`
	R            float64 `yaml:"r"`
	S            float64 `yaml:"s"`
	X            float64 `yaml:"x"`
	Y            float64 `yaml:"y"`
	Z            float64 `yaml:"z"`
	AccessEgress float64 `yaml:"accessEgress"`
	FirstWait    float64 `yaml:"firstWait"`
	TransferWait float64 `yaml:"transferWait"`
}

func (w TransitWeights) classWeights() [9]float64 {
	return [9]float64{w.F, w.G, w.B, w.P, w.R, w.S, w.X, w.Y, w.Z}
}

// Config 路径类型模型参数
type Config struct {
	// HOV成本分摊系数，成本系数除以该值
	HOVCostDivisorWork  float64 `yaml:"hovCostDivisorWork"`
	HOVCostDivisorOther float64 `yaml:"hovCostDivisorOther"`

	WalkTimeWeight float64 `yaml:"walkTimeWeight"`
	BikeTimeWeight float64 `yaml:"bikeTimeWeight"`

	UseBikeClassWeights bool             `yaml:"useBikeClassWeights"`
	BikeClassWeights    BikeClassWeights `yaml:"bikeClassWeights"`

	TransitWeights TransitWeights `yaml:"transitWeights"`

	// 收费路径相对免费路径的效用常数
	TollConstant float64 `yaml:"tollConstant"`
	// 每距离单位的小汽车运营成本
	AutoOperatingCostPerDistanceUnit float64 `yaml:"autoOperatingCostPerDistanceUnit"`

	// 单程可用路径的时间上限（分钟），往返时加倍
	AvailablePathUpperTimeLimit float64 `yaml:"availablePathUpperTimeLimit"`
	PathChoiceScaleFactor       float64 `yaml:"pathChoiceScaleFactor"`

	// 小区间距离超过此值时不做地块级距离混合，<=0表示不限制
	MaxBlendingDistance  float64 `yaml:"maxBlendingDistance"`
	UseNodeDistances     bool    `yaml:"useNodeDistances"`
	UseCircuityDistances bool    `yaml:"useCircuityDistances"`

	// 距离单位换算
	DistanceUnitsPerMile       float64 `yaml:"distanceUnitsPerMile"`
	LengthUnitsPerDistanceUnit float64 `yaml:"lengthUnitsPerDistanceUnit"`

	// 估计/确定性模式下忽略随机选择
	DeterministicSelection bool `yaml:"deterministicSelection"`
}

func DefaultConfig() Config {
	return Config{
		HOVCostDivisorWork:  2,
		HOVCostDivisorOther: 2,
		WalkTimeWeight:      1,
		BikeTimeWeight:      1,
		TransitWeights: TransitWeights{
			F: 1, G: 1, B: 1, P: 1, R: 1, S: 1, X: 1, Y: 1, Z: 1,
			AccessEgress: 1, FirstWait: 1, TransferWait: 1,
		},
		AutoOperatingCostPerDistanceUnit: 0.12,
		AvailablePathUpperTimeLimit:      200,
		PathChoiceScaleFactor:            1,
		DistanceUnitsPerMile:             1,
		LengthUnitsPerDistanceUnit:       5280,
	}
}

// LoadConfig 读取yaml配置，未出现的字段保持默认值
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	positive := map[string]float64{
		"hovCostDivisorWork":          c.HOVCostDivisorWork,
		"hovCostDivisorOther":         c.HOVCostDivisorOther,
		"availablePathUpperTimeLimit": c.AvailablePathUpperTimeLimit,
		"pathChoiceScaleFactor":       c.PathChoiceScaleFactor,
		"distanceUnitsPerMile":        c.DistanceUnitsPerMile,
		"lengthUnitsPerDistanceUnit":  c.LengthUnitsPerDistanceUnit,
	}
	for name, v := range positive {
		if !(v > 0) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be positive and finite, got %v", name, v))
		}
	}
	if c.AutoOperatingCostPerDistanceUnit < 0 {
		errs = append(errs, fmt.Errorf("autoOperatingCostPerDistanceUnit must not be negative, got %v", c.AutoOperatingCostPerDistanceUnit))
	}
	return errors.Join(errs...)
}
