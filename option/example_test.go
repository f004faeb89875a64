package option_test

import (
	"fmt"
	"strings"

	"github.com/hatlonely/configster/option"
)

func ExampleParser_Parse() {
	text := `# server
Host = example.com
Port = 8080, tcp, public
Verbose
`
	records, err := option.NewParser(',').Parse(strings.NewReader(text))
	if err != nil {
		panic(err)
	}
	for _, r := range records {
		fmt.Printf("%s=%q %q\n", r.Option, r.Value.Primary, r.Value.Attributes)
	}
	// Output:
	// Host="example.com" []
	// Port="8080" ["tcp" "public"]
	// Verbose="" []
}

func ExampleSplitValue() {
	v := option.SplitValue("red, , blue", ',')
	fmt.Printf("%q %q\n", v.Primary, v.Attributes)
	// Output:
	// "red" ["" "blue"]
}
