package airtable

import "testing"

func TestFieldEquals(t *testing.T) {
	got := Field("Registrant Email").Equals("a@b.com").String()
	want := "{Registrant Email} = 'a@b.com'"
	if got != want {
		t.Fatalf("formula = %q, want %q", got, want)
	}
}

func TestFieldEqualsEscapesQuotes(t *testing.T) {
	got := Field("Registrant Name").Equals("O'Brien").String()
	want := `{Registrant Name} = 'O\'Brien'`
	if got != want {
		t.Fatalf("formula = %q, want %q", got, want)
	}
}

func TestAnd(t *testing.T) {
	f := And(
		Field("Registrant Email").Equals("a@b.com"),
		Field("Event ID").Equals("ev1"),
	)
	want := "AND({Registrant Email} = 'a@b.com', {Event ID} = 'ev1')"
	if f.String() != want {
		t.Fatalf("formula = %q, want %q", f, want)
	}
}

func TestAndSingleFormulaUnwrapped(t *testing.T) {
	f := And(Field("Status").Equals("Pending"))
	if f.String() != "{Status} = 'Pending'" {
		t.Fatalf("formula = %q", f)
	}
}
