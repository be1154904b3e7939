package pkg

import "smtptester"

// AssertNoError logs and panics on err. Reserved for startup wiring that
// cannot fail in a correctly configured process.
func AssertNoError(err error) {
	if err != nil {
		smtptester.Logger.Error().Err(err).Msg("Error occurred that should not have occurred.")
		panic(err)
	}
}
