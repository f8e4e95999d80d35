/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package charm

import (
	"context"
	"fmt"

	"github.com/charmkit/hello-kubecon/internal/hook"
	"github.com/charmkit/hello-kubecon/internal/relation"
)

// Stage declares one databag to parse for a handler: where to find it
// on the inbound event and which record type to read it as. A stage
// built with a nil schema skips parsing and yields the none-result,
// for handlers that only care whether the relation exists.
type Stage struct {
	name   string
	schema *relation.Schema
	locate func(ctx context.Context, ev *hook.Event) (relation.Bag, error)
}

// Parse builds middleware that resolves each stage in declaration
// order and appends its ReadResult to the handler's parsed tail,
// preserving results appended by earlier middleware. A validation
// failure travels to the handler as data; only failing to locate the
// bag at all aborts the event, since that is a framework fault rather
// than peer data quality.
func Parse(stages ...Stage) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, ev *hook.Event, parsed ...relation.ReadResult) error {
			for _, st := range stages {
				if st.schema == nil {
					parsed = append(parsed, relation.NoneResult())
					continue
				}
				bag, err := st.locate(ctx, ev)
				if err != nil {
					return fmt.Errorf("locating %s databag: %w", st.name, err)
				}
				parsed = append(parsed, st.schema.Read(bag))
			}
			return next(ctx, ev, parsed...)
		}
	}
}

// RemoteAppData parses the remote application's databag of the
// relation the event fired for.
func RemoteAppData(s *relation.Schema) Stage {
	return Stage{
		name:   "remote application",
		schema: s,
		locate: func(ctx context.Context, ev *hook.Event) (relation.Bag, error) {
			return ev.Tools.AppBag(ctx, ev.RelationID, ev.RemoteApp)
		},
	}
}

// RemoteUnitData parses the remote unit's databag of the relation the
// event fired for.
func RemoteUnitData(s *relation.Schema) Stage {
	return Stage{
		name:   "remote unit",
		schema: s,
		locate: func(ctx context.Context, ev *hook.Event) (relation.Bag, error) {
			return ev.Tools.UnitBag(ctx, ev.RelationID, ev.RemoteUnit)
		},
	}
}

// LocalAppData parses the local application's databag of the relation
// the event fired for. For peer relations this is the bag the leader
// seeds.
func LocalAppData(s *relation.Schema) Stage {
	return Stage{
		name:   "local application",
		schema: s,
		locate: func(ctx context.Context, ev *hook.Event) (relation.Bag, error) {
			return ev.Tools.AppBag(ctx, ev.RelationID, ev.AppName())
		},
	}
}

// LocalUnitData parses this unit's own databag of the relation the
// event fired for.
func LocalUnitData(s *relation.Schema) Stage {
	return Stage{
		name:   "local unit",
		schema: s,
		locate: func(ctx context.Context, ev *hook.Event) (relation.Bag, error) {
			return ev.Tools.UnitBag(ctx, ev.RelationID, ev.UnitName)
		},
	}
}

// ActionParams parses the running action's parameters. The handler
// owns the failure policy: typically action-fail on an invalid result
// rather than proceeding.
func ActionParams(s *relation.Schema) Stage {
	return Stage{
		name:   "action parameter",
		schema: s,
		locate: func(ctx context.Context, ev *hook.Event) (relation.Bag, error) {
			return ev.Tools.ActionParams(ctx)
		},
	}
}

// ConfigData parses the charm config.
func ConfigData(s *relation.Schema) Stage {
	return Stage{
		name:   "config",
		schema: s,
		locate: func(ctx context.Context, ev *hook.Event) (relation.Bag, error) {
			return ev.Tools.ConfigBag(ctx)
		},
	}
}
