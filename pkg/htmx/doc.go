// Package htmx builds pie responses for HTMX requests.
//
// Request helpers read the HX-* request headers:
//
//	func (s *Site) Contacts(r *pie.Request) templ.Component {
//		if htmx.IsPartial(r) {
//			return views.ContactList(s.contacts)
//		}
//		return views.ContactsPage(s.contacts)
//	}
//
// Navigation helpers answer HTMX requests with HX-Redirect or HX-Location
// and everything else with a regular 302:
//
//	return htmx.Redirect(r, "/contacts")
//	return htmx.LocationTarget(r, "/contacts", "#main")
//
// Respond and Apply attach response headers and out-of-band swaps:
//
//	return htmx.Respond(views.Row(c),
//		htmx.WithTrigger("contact-saved"),
//		htmx.WithReswap(htmx.SwapOuterHTML),
//		htmx.WithOOB(views.Counter(len(s.contacts))),
//	)
package htmx
