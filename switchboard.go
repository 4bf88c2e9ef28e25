// Package switchboard is a multi-agent chatbot orchestration runtime.
//
// A chatbot routes each user query through a fixed two-node graph: a
// supervisor agent that calls registered specialist agents as tools, then
// a formatter that turns the supervisor's raw output into the
// user-visible reply. Specialists run their own bounded tool loops with
// isolated recursion counters under a strict timeout hierarchy, knowledge
// documents are advertised through pre-injected prompt inventories, and
// progress streams to terminal and WebSocket clients while a turn runs.
//
// Most applications interact with the cli package:
//
//	func main() {
//		app := &cli.App{
//			Name:    "weatherbot",
//			Version: switchboard.Version,
//			Register: func(r *agent.Registry, s *config.Settings) error {
//				return r.Register(weatherAgent())
//			},
//		}
//		app.Run()
//	}
//
// The engine packages compose bottom-up for embedders that need finer
// control: config → model → middleware/knowledge → agent → graph →
// session → web/cli.
package switchboard

// Version is the module release version.
const Version = "0.3.0"
