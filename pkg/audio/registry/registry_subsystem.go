package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

type SubsystemFactory interface {
	Name() string
	NewSubsystem() (types.Subsystem, error)
}

var (
	subsystemFactoryRegistryLocker sync.Mutex
	subsystemFactoryRegistry       = map[reflect.Type]Entry{}
)

func RegisterSubsystemFactory(
	priority int,
	subsystemFactory SubsystemFactory,
) {
	t := reflect.ValueOf(subsystemFactory).Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	subsystemFactoryRegistryLocker.Lock()
	defer subsystemFactoryRegistryLocker.Unlock()
	if _, ok := subsystemFactoryRegistry[t]; ok {
		panic(fmt.Errorf("there is already registered a factory of Subsystem of type %v", t))
	}
	for _, registered := range subsystemFactoryRegistry {
		if registered.Name() == subsystemFactory.Name() {
			panic(fmt.Errorf("there is already registered a factory of Subsystem with name %q (%T)", subsystemFactory.Name(), registered.SubsystemFactory))
		}
	}
	subsystemFactoryRegistry[t] = Entry{
		Priority:         priority,
		SubsystemFactory: subsystemFactory,
	}
}

// Entry is a registered factory with its priority.
type Entry struct {
	Priority int
	SubsystemFactory
}

// Entries returns the registered factories, the highest priority first.
func Entries() []Entry {
	subsystemFactoryRegistryLocker.Lock()
	var entries []Entry
	for _, entry := range subsystemFactoryRegistry {
		entries = append(entries, entry)
	}
	subsystemFactoryRegistryLocker.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name() < entries[j].Name()
	})
	return entries
}

// SubsystemFactories returns the registered factories, the highest priority first.
func SubsystemFactories() []SubsystemFactory {
	var factories []SubsystemFactory
	for _, entry := range Entries() {
		factories = append(factories, entry.SubsystemFactory)
	}
	return factories
}

func SubsystemFactoryByName(name string) (SubsystemFactory, error) {
	subsystemFactoryRegistryLocker.Lock()
	defer subsystemFactoryRegistryLocker.Unlock()
	var names []string
	for _, factory := range subsystemFactoryRegistry {
		if factory.Name() == name {
			return factory.SubsystemFactory, nil
		}
		names = append(names, factory.Name())
	}
	sort.Strings(names)
	return nil, fmt.Errorf("no audio backend with name %q is registered (available: %v)", name, names)
}
