package malgo

import (
	"github.com/xaionaro-go/audiorender/pkg/audio/registry"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

const (
	Name     = "malgo"
	Priority = 55
)

func init() {
	registry.RegisterSubsystemFactory(Priority, SubsystemFactory{})
}

type SubsystemFactory struct{}

func (SubsystemFactory) Name() string {
	return Name
}

func (SubsystemFactory) NewSubsystem() (types.Subsystem, error) {
	return NewSubsystem(), nil
}
