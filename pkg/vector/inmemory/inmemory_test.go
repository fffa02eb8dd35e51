package inmemory_test

import (
	"github.com/papercomputeco/storyline/pkg/vector"
	"github.com/papercomputeco/storyline/pkg/vector/inmemory"
	"github.com/papercomputeco/storyline/pkg/vector/vectortest"
)

var _ = vectortest.DescribeDriver("InMemory", func() vector.Driver {
	return inmemory.NewDriver()
})
