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

package hellokubecon

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	"github.com/charmkit/hello-kubecon/internal/hook"
	"github.com/charmkit/hello-kubecon/internal/relation"
)

// Mode selects whether relation data is fetched for reading or bound
// for write-through.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// Context resolves this charm's relations from hooks that do not fire
// on the relation itself, where the event environment names no
// relation id.
type Context struct {
	log   logr.Logger
	tools *hook.Context
}

// NewContext builds a relation resolver over the event's hook tools.
func NewContext(log logr.Logger, tools *hook.Context) *Context {
	return &Context{log: log, tools: tools}
}

// ClusterData reads the peer relation's application databag as a typed
// record. It returns nil without error when the relation is not
// established or its content does not validate: both mean the seed has
// not landed yet and the caller should wait for the next event.
// ModeWrite additionally binds the record, so mutations write through;
// only the leader may ask for that, since the host refuses application
// databag writes from anyone else.
func (c *Context) ClusterData(ctx context.Context, mode Mode) (*relation.Record, error) {
	relationID, err := c.tools.RelationID(ctx, ClusterEndpoint)
	if errors.Is(err, hook.ErrNoRelation) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	bag, err := c.tools.AppBag(ctx, relationID, c.tools.Env().AppName())
	if err != nil {
		return nil, err
	}

	result := ClusterSchema.Read(bag)
	if verr := result.Invalid(); verr != nil {
		c.log.V(1).Info("cluster data failed validation", "error", verr.Error())
		return nil, nil
	}
	record := result.Record()
	if mode == ModeWrite {
		if err := record.Bind(bag); err != nil {
			return nil, err
		}
	}
	return record, nil
}
