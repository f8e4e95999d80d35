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

package hook

// Event is what a handler receives for one dispatch: the parsed
// environment and the tool facade scoped to the event.
type Event struct {
	*Env

	// Tools exposes the hook tools for the event's duration.
	Tools *Context
}

// NewEvent pairs an environment with a tool context over runner.
func NewEvent(env *Env, runner Runner) *Event {
	return &Event{Env: env, Tools: NewContext(env, runner)}
}
