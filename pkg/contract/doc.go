// Package contract models pact files: interactions, bodies, provider states
// and their matching rules and generators.
//
// ParsePact reads documents of every specification version. The version is
// taken from the metadata block, or inferred from the document layout when
// absent. Message rules and generators for the body are kept under the
// "content" category in memory and written back as "body".
//
// Bodies built with TemplateBody carry their own matchers. Passing one to
// SetBody moves those matchers into the owning request, response or message.
package contract
