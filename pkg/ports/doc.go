// Package ports defines the interfaces between the session engine and
// its driven adapters: the session store and the optional distributed
// locker. Implementations live under pkg/adapters.
package ports
