package pathtype

import (
	"fmt"
)

// Mode 出行方式
type Mode int

const (
	ModeWalk Mode = iota
	ModeBike
	ModeSOV
	ModeHOVDriver
	ModeHOVPassenger
	ModeTransit
	ModeParkAndRide

	NumModes = int(ModeParkAndRide) + 1
)

var modeNames = [NumModes]string{
	"walk", "bike", "sov", "hov_driver", "hov_passenger", "transit", "park_and_ride",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= NumModes {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mode: %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= NumModes {
		return nil, fmt.Errorf("invalid mode: %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// PathType 同一出行方式下互相竞争的网络路径类型
type PathType int

const (
	PathTypeFullNetwork PathType = iota
	PathTypeNoTolls
	PathTypeLocalBus
	PathTypeLightRail
	PathTypePremiumBus
	PathTypeCommuterRail
	PathTypeFerry

	NumPathTypes = int(PathTypeFerry) + 1
)

var pathTypeNames = [NumPathTypes]string{
	"full_network", "no_tolls", "local_bus", "light_rail", "premium_bus", "commuter_rail", "ferry",
}

// AllPathTypes 按固定枚举顺序返回全部路径类型，确定性选择依赖此顺序
func AllPathTypes() []PathType {
	pts := make([]PathType, NumPathTypes)
	for i := range pts {
		pts[i] = PathType(i)
	}
	return pts
}

func (p PathType) String() string {
	if p < 0 || int(p) >= NumPathTypes {
		return fmt.Sprintf("PathType(%d)", int(p))
	}
	return pathTypeNames[p]
}

func ParsePathType(s string) (PathType, error) {
	for i, name := range pathTypeNames {
		if name == s {
			return PathType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown path type: %q", s)
}

func (p PathType) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= NumPathTypes {
		return nil, fmt.Errorf("invalid path type: %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *PathType) UnmarshalText(text []byte) error {
	v, err := ParsePathType(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Purpose 出行目的
type Purpose int

const (
	PurposeHome Purpose = iota
	PurposeWork
	PurposeSchool
	PurposeEscort
	PurposePersonalBusiness
	PurposeShopping
	PurposeMeal
	PurposeSocial
	PurposeRecreation
	PurposeMedical
	PurposeBusiness

	numPurposes = int(PurposeBusiness) + 1
)

var purposeNames = [numPurposes]string{
	"home", "work", "school", "escort", "personal_business", "shopping",
	"meal", "social", "recreation", "medical", "business",
}

func (p Purpose) String() string {
	if p < 0 || int(p) >= numPurposes {
		return fmt.Sprintf("Purpose(%d)", int(p))
	}
	return purposeNames[p]
}

func ParsePurpose(s string) (Purpose, error) {
	for i, name := range purposeNames {
		if name == s {
			return Purpose(i), nil
		}
	}
	return 0, fmt.Errorf("unknown purpose: %q", s)
}

func (p Purpose) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= numPurposes {
		return nil, fmt.Errorf("invalid purpose: %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Purpose) UnmarshalText(text []byte) error {
	v, err := ParsePurpose(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// IsWorkOrBusiness 决定HOV成本分摊系数使用工作类还是其他类
func (p Purpose) IsWorkOrBusiness() bool {
	switch p {
	case PurposeWork, PurposeBusiness:
		return true
	default:
		return false
	}
}

type modeFamily int

const (
	familyWalkBike modeFamily = iota
	familyAuto
	familyTransit
)

func familyOf(m Mode) modeFamily {
	switch m {
	case ModeWalk, ModeBike:
		return familyWalkBike
	case ModeSOV, ModeHOVDriver, ModeHOVPassenger:
		return familyAuto
	case ModeTransit, ModeParkAndRide:
		return familyTransit
	default:
		panic(fmt.Sprintf("unknown mode %d", int(m)))
	}
}

// SkimMode 查询阻抗矩阵时使用的出行方式，停车换乘使用公交矩阵
func SkimMode(m Mode) Mode {
	switch m {
	case ModeParkAndRide:
		return ModeTransit
	case ModeWalk, ModeBike, ModeSOV, ModeHOVDriver, ModeHOVPassenger, ModeTransit:
		return m
	default:
		panic(fmt.Sprintf("unknown mode %d", int(m)))
	}
}

// SurfaceModes 不含停车换乘的全部出行方式
func SurfaceModes() []Mode {
	return []Mode{ModeWalk, ModeBike, ModeSOV, ModeHOVDriver, ModeHOVPassenger, ModeTransit}
}

// SurfaceModesWithParkAndRide 全部出行方式
func SurfaceModesWithParkAndRide() []Mode {
	return append(SurfaceModes(), ModeParkAndRide)
}
