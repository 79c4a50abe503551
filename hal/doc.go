// Package hal defines the backend contract of the RHI: the interfaces a
// device backend implements, the resource interfaces the frontend wraps,
// the shared sentinel errors, and the logging facade.
//
// Two backends ship with the module:
//
//   - hal/modern — explicit submission: command lists are recorded and
//     executed on queue submission, synchronization is explicit through
//     fences and semaphores, descriptor pools are cycled per frame.
//   - hal/legacy — immediate mode: command-list operations apply
//     immediately, synchronization is implicit, descriptor sets are
//     software binding tables resolved at draw time.
//
// Backends register themselves from init functions via RegisterBackend;
// importing a backend package is what makes it available.
package hal
