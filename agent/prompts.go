package agent

// PlanningPrompt is the static chain-of-thought block appended to every
// specialist's capabilities, and reused by the supervisor builder. It
// replaces the former internal task-list tool with plain guidance.
const PlanningPrompt = `## How to Work

Plan before you act:
1. Break the query into the discrete pieces of information you need.
2. Call the tools that provide them. Make independent calls in parallel rather than one at a time.
3. Review the results. If something is missing, or a result references IDs or further documents, follow up with more calls.
4. Answer only once you have everything. Be specific: include the names, identifiers, and details you found.`
