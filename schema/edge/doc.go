// Package edge names the relationship kinds a descriptor navigation can have.
//
//   - OneToMany: the target carries a foreign key to the owner
//     (a Category has many Children).
//   - ManyToMany: a junction entity carries one foreign key to each side
//     (Posts and Tags through PostTag).
//   - ManyToOne: the owner carries a foreign key to the target
//     (a Comment belongs to a Post).
//
// OneToMany and ManyToMany navigations are collections; ManyToOne is a
// single reference.
package edge
